package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"ip-risk-server-go/src/configs"
	"ip-risk-server-go/src/core/utils"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// 上传内容若以这些文件头开头，说明不是图片而是夹带的可执行文件或压缩包
var payloadHeaders = []struct {
	kind   string
	header []byte
}{
	{"PE", []byte{0x4D, 0x5A}},
	{"ELF", []byte{0x7F, 0x45, 0x4C, 0x46}},
	{"Mach-O", []byte{0xCA, 0xFE, 0xBA, 0xBE}},
	{"Mach-O", []byte{0xCF, 0xFA, 0xED, 0xFE}},
	{"ZIP", []byte{0x50, 0x4B, 0x03, 0x04}},
	{"GZIP", []byte{0x1F, 0x8B, 0x08}},
}

// UploadValidator 在图片送往标注服务之前检查大小、格式和尺寸
type UploadValidator struct {
	limits *configs.SecurityConfig
	logger *utils.Logger
}

func NewUploadValidator(limits *configs.SecurityConfig, logger *utils.Logger) *UploadValidator {
	return &UploadValidator{limits: limits, logger: logger}
}

// Validate 检查解码后的图片字节，declared 是 data URL 声明的格式，可为空
//
// 检查顺序：空数据、文件大小、声明格式、夹带载荷（enable_deep_scan）、
// 解码、实际格式、宽高和像素数。声明格式与实际格式不一致时以实际格式为准。
func (v *UploadValidator) Validate(data []byte, declared string) ValidationResult {
	if len(data) == 0 {
		return reject(ReasonEmpty, fmt.Errorf("缺少图片数据"))
	}

	if size := int64(len(data)); size > v.limits.MaxFileSize {
		v.logger.Warn("上传图片超过大小限制", map[string]interface{}{
			"size":     size,
			"max_size": v.limits.MaxFileSize,
		})
		return reject(ReasonSize, fmt.Errorf("文件大小超限: %d bytes，最大允许: %d bytes", size, v.limits.MaxFileSize))
	}

	declared = normalizeFormat(declared)
	if declared != "" && !v.allowed(declared) {
		return reject(ReasonFormat, fmt.Errorf("不支持的格式: %s", declared))
	}

	if v.limits.EnableDeepScan {
		if kind := embeddedPayload(data); kind != "" {
			v.logger.Warn("上传内容不是图片", map[string]interface{}{
				"payload": kind,
				"size":    len(data),
			})
			result := reject(ReasonPayload, fmt.Errorf("检测到%s文件头", kind))
			result.Suspicious = true
			return result
		}
	}

	cfg, actual, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return reject(ReasonDecode, fmt.Errorf("图片解码失败: %v", err))
	}
	actual = normalizeFormat(actual)
	if !v.allowed(actual) {
		result := reject(ReasonFormat, fmt.Errorf("不支持的格式: %s", actual))
		result.Format = actual
		return result
	}
	if declared != "" && declared != actual {
		v.logger.Warn("声明格式与实际格式不一致", map[string]interface{}{
			"declared": declared,
			"actual":   actual,
		})
	}

	if cfg.Width > v.limits.MaxWidth || cfg.Height > v.limits.MaxHeight {
		return reject(ReasonDimension, fmt.Errorf("图片尺寸超限: %dx%d，最大允许: %dx%d",
			cfg.Width, cfg.Height, v.limits.MaxWidth, v.limits.MaxHeight))
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > v.limits.MaxPixels {
		return reject(ReasonDimension, fmt.Errorf("像素总数超限: %d，最大允许: %d", pixels, v.limits.MaxPixels))
	}

	return ValidationResult{
		IsValid:  true,
		Format:   actual,
		Width:    cfg.Width,
		Height:   cfg.Height,
		FileSize: int64(len(data)),
	}
}

func (v *UploadValidator) allowed(format string) bool {
	for _, f := range v.limits.AllowedFormats {
		if normalizeFormat(f) == format {
			return true
		}
	}
	return false
}

// embeddedPayload 返回匹配到的文件类型，没有匹配时返回空串
func embeddedPayload(data []byte) string {
	for _, p := range payloadHeaders {
		if bytes.HasPrefix(data, p.header) {
			return p.kind
		}
	}
	return ""
}

// normalizeFormat jpg 与 jpeg 视为同一格式
func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "jpg" {
		return "jpeg"
	}
	return format
}

func reject(reason string, err error) ValidationResult {
	return ValidationResult{Reason: reason, Error: err}
}
