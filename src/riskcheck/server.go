package riskcheck

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ip-risk-server-go/src/configs"
	"ip-risk-server-go/src/core/auth"
	"ip-risk-server-go/src/core/image"
	"ip-risk-server-go/src/core/risk"
	"ip-risk-server-go/src/core/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	checkPath = "/check-ip-risk"

	msgInvalidBody  = "Invalid request body"
	msgInvalidImage = "Invalid image data"
	msgBodyTooLarge = "Request body too large"
	msgUnauthorized = "Unauthorized"
)

var _ RiskService = (*DefaultRiskService)(nil)

type DefaultRiskService struct {
	logger     *utils.Logger
	config     *configs.Config
	checker    Checker
	processor  *image.ImageProcessor
	authorizer *auth.Authorizer // 未启用认证时为nil
	maxBody    int64
}

// NewDefaultRiskService 构造函数
func NewDefaultRiskService(config *configs.Config, checker Checker, logger *utils.Logger) (*DefaultRiskService, error) {
	if checker == nil {
		return nil, errors.New("checker is required")
	}

	service := &DefaultRiskService{
		logger:    logger,
		config:    config,
		checker:   checker,
		processor: image.NewImageProcessor(&config.Risk.Security, logger),
		// base64 膨胀约4/3，另留出JSON字段和文本的余量
		maxBody: config.Risk.Security.MaxFileSize*4/3 + 64*1024,
	}

	if config.Server.Auth.Enabled {
		tokens := make([]string, 0, len(config.Server.Auth.Tokens))
		for _, t := range config.Server.Auth.Tokens {
			tokens = append(tokens, t.Token)
		}
		service.authorizer = auth.NewAuthorizer(config.Server.Token, tokens, config.Server.Auth.AllowedClients)
	}

	return service, nil
}

// Start 实现 RiskService 接口，注册风险检查路由
func (s *DefaultRiskService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	apiGroup.GET(checkPath, s.handleGet)
	apiGroup.POST(checkPath, s.handlePost)
	apiGroup.OPTIONS(checkPath, s.handleOptions)

	s.logger.Info("风险检查HTTP服务路由注册完成")
	return nil
}

// handleOptions 处理OPTIONS请求（CORS）
func (s *DefaultRiskService) handleOptions(c *gin.Context) {
	s.addCORSHeaders(c)
	c.Status(http.StatusNoContent)
}

// handleGet 处理GET请求（状态检查）
func (s *DefaultRiskService) handleGet(c *gin.Context) {
	s.addCORSHeaders(c)
	c.String(http.StatusOK, "IP risk check endpoint is running, POST {prompt, imageBase64} to analyze")
}

// handlePost 处理POST请求（风险检查）
func (s *DefaultRiskService) handlePost(c *gin.Context) {
	s.addCORSHeaders(c)

	requestID := c.GetHeader("X-Request-Id")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	c.Header("X-Request-Id", requestID)
	log := s.logger.WithTag(requestID)

	if s.authorizer != nil {
		clientID, err := s.authorizer.Authorize(c.GetHeader("Authorization"))
		if err != nil {
			log.Warn("认证失败 %v", err)
			s.respondError(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		log.Debug("认证通过", map[string]interface{}{"client_id": clientID})
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)

	var body CheckRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("请求体过大", map[string]interface{}{"limit": tooLarge.Limit})
			s.respondError(c, http.StatusBadRequest, msgBodyTooLarge)
			return
		}
		log.Warn("请求体解析失败 %v", err)
		s.respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	req := risk.Request{Prompt: body.Prompt}
	if strings.TrimSpace(body.ImageBase64) != "" {
		img, err := s.processor.ProcessDataURL(body.ImageBase64)
		if err != nil {
			log.Warn("图片验证失败 %v", err)
			s.respondRiskError(c, risk.NewError(risk.KindInvalidInput, msgInvalidImage, err))
			return
		}
		req.Image = img.Data
	}

	log.Info("收到风险检查请求", map[string]interface{}{
		"prompt_length": len(body.Prompt),
		"image_size":    len(req.Image),
	})

	result, err := s.checker.Check(c.Request.Context(), req)
	if err != nil {
		log.Warn("风险检查失败", map[string]interface{}{
			"kind":  risk.KindOf(err).String(),
			"error": err.Error(),
		})
		s.respondRiskError(c, err)
		return
	}

	log.Info("风险检查完成", map[string]interface{}{
		"risk_level": result.RiskLevel,
		"detected":   len(result.DetectedItems),
	})
	c.JSON(http.StatusOK, result)
}

// respondRiskError 按错误分类返回状态码，只暴露公开的错误信息
func (s *DefaultRiskService) respondRiskError(c *gin.Context, err error) {
	s.respondError(c, risk.HTTPStatus(err), risk.PublicMessage(err))
}

// respondError 发送错误响应
func (s *DefaultRiskService) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorResponse{Error: message})
}

// addCORSHeaders 添加CORS头
func (s *DefaultRiskService) addCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", s.config.Web.Origin)
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Expose-Headers", "X-Request-Id")
}
