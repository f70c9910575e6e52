package riskcheck

import (
	"context"

	"ip-risk-server-go/src/core/risk"

	"github.com/gin-gonic/gin"
)

// RiskService 定义风险检查服务接口
type RiskService interface {
	// 将风险检查的路由注册到 engine 与 apiGroup
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}

// Checker 执行一次风险检查，由 risk.Gateway 实现
type Checker interface {
	Check(ctx context.Context, req risk.Request) (*risk.Result, error)
}
