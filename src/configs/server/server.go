package server

import (
	"context"
	"net/http"

	"ip-risk-server-go/src/configs"
	"ip-risk-server-go/src/core/utils"

	"github.com/gin-gonic/gin"
)

var _ CfgService = (*DefaultCfgService)(nil)

type DefaultCfgService struct {
	logger *utils.Logger
	config *configs.Config
}

// NewDefaultCfgService 构造函数
func NewDefaultCfgService(config *configs.Config, logger *utils.Logger) (*DefaultCfgService, error) {
	service := &DefaultCfgService{
		logger: logger,
		config: config,
	}

	return service, nil
}

// Start 实现 CfgService 接口，注册所有 Cfg 相关路由
func (s *DefaultCfgService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	apiGroup.GET("/cfg", s.handleGet)
	apiGroup.OPTIONS("/cfg", s.handleOptions)

	s.logger.Info("Cfg HTTP服务路由注册完成")
	return nil
}

// handleGet 返回运行时配置，不包含任何密钥
func (s *DefaultCfgService) handleGet(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", s.config.Web.Origin)
	c.JSON(http.StatusOK, s.snapshot())
}

func (s *DefaultCfgService) handleOptions(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", s.config.Web.Origin)
	c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
	c.Status(http.StatusNoContent)
}

func (s *DefaultCfgService) snapshot() gin.H {
	llmName, llmCfg, _ := s.config.SelectedLLM()
	annName, annCfg, _ := s.config.SelectedAnnotator()
	sec := s.config.Risk.Security

	return gin.H{
		"status": "ok",
		"llm": gin.H{
			"name":        llmName,
			"type":        llmCfg.Type,
			"model":       llmCfg.ModelName,
			"url":         llmCfg.BaseURL,
			"temperature": llmCfg.Temperature,
			"key_set":     llmCfg.APIKey != "",
		},
		"annotator": gin.H{
			"name":            annName,
			"type":            annCfg.Type,
			"credentials_set": annCfg.CredentialsFile != "" || annCfg.APIKey != "",
		},
		"risk": gin.H{
			"match_mode":       s.config.Risk.MatchMode,
			"min_length":       s.config.Risk.MinLength,
			"denylist_size":    len(s.config.Risk.Denylist),
			"upstream_timeout": s.config.Risk.UpstreamTimeout,
			"rpm":              s.config.Risk.RPM,
		},
		"image": gin.H{
			"max_file_size":   sec.MaxFileSize,
			"max_width":       sec.MaxWidth,
			"max_height":      sec.MaxHeight,
			"allowed_formats": sec.AllowedFormats,
		},
		"auth_enabled": s.config.Server.Auth.Enabled,
	}
}
