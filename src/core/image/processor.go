package image

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync/atomic"

	"ip-risk-server-go/src/configs"
	"ip-risk-server-go/src/core/metrics"
	"ip-risk-server-go/src/core/utils"
)

// ImageProcessor 图片处理器，负责 data URL 解码和安全验证
type ImageProcessor struct {
	validator *UploadValidator
	logger    *utils.Logger
	metrics   *ImageMetrics
}

// NewImageProcessor 创建新的图片处理器
func NewImageProcessor(config *configs.SecurityConfig, logger *utils.Logger) *ImageProcessor {
	return &ImageProcessor{
		validator: NewUploadValidator(config, logger),
		logger:    logger,
		metrics:   &ImageMetrics{},
	}
}

// DecodeDataURL 解析 data:<mime>;base64,<data>，也接受不带前缀的纯base64
func DecodeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	mime := ""
	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, "", fmt.Errorf("data URL 缺少数据部分")
		}
		header = strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("data URL 不是base64编码")
		}
		mime = strings.TrimSuffix(header, ";base64")
		s = payload
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// 部分客户端会去掉末尾的填充
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if rawErr != nil {
			return nil, "", fmt.Errorf("base64解码失败: %v", err)
		}
	}
	return data, mime, nil
}

// formatFromMIME image/png -> png
func formatFromMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	if !strings.HasPrefix(mime, "image/") {
		return mime
	}
	return strings.TrimPrefix(mime, "image/")
}

// ProcessDataURL 解码并验证上传的图片，失败时返回包装了 ErrInvalidImage 的错误
func (p *ImageProcessor) ProcessDataURL(dataURL string) (*ImageData, error) {
	atomic.AddInt64(&p.metrics.TotalProcessed, 1)

	if strings.HasPrefix(strings.TrimSpace(dataURL), "data:") {
		atomic.AddInt64(&p.metrics.DataURLs, 1)
	} else {
		atomic.AddInt64(&p.metrics.Base64Direct, 1)
	}

	data, mime, err := DecodeDataURL(dataURL)
	if err != nil {
		p.reject(ReasonEncoding)
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	result := p.validator.Validate(data, formatFromMIME(mime))
	if !result.IsValid {
		p.reject(result.Reason)
		if result.Suspicious {
			atomic.AddInt64(&p.metrics.SecurityIncidents, 1)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, result.Error)
	}

	p.logger.Debug("图片处理完成", map[string]interface{}{
		"format":    result.Format,
		"width":     result.Width,
		"height":    result.Height,
		"file_size": result.FileSize,
	})

	return &ImageData{
		Data:     data,
		MIME:     mime,
		Format:   result.Format,
		Width:    result.Width,
		Height:   result.Height,
		FileSize: result.FileSize,
	}, nil
}

func (p *ImageProcessor) reject(reason string) {
	atomic.AddInt64(&p.metrics.FailedValidations, 1)
	metrics.ImagesRejected.WithLabelValues(reason).Inc()
}

// GetMetrics 获取处理统计信息
func (p *ImageProcessor) GetMetrics() ImageMetrics {
	return ImageMetrics{
		TotalProcessed:    atomic.LoadInt64(&p.metrics.TotalProcessed),
		DataURLs:          atomic.LoadInt64(&p.metrics.DataURLs),
		Base64Direct:      atomic.LoadInt64(&p.metrics.Base64Direct),
		FailedValidations: atomic.LoadInt64(&p.metrics.FailedValidations),
		SecurityIncidents: atomic.LoadInt64(&p.metrics.SecurityIncidents),
	}
}
