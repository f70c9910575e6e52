package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ip-risk-server-go/src/configs"
	cfgserver "ip-risk-server-go/src/configs/server"
	"ip-risk-server-go/src/core/providers/annotator"
	"ip-risk-server-go/src/core/providers/llm"
	"ip-risk-server-go/src/core/risk"
	"ip-risk-server-go/src/core/types"
	"ip-risk-server-go/src/core/utils"
	"ip-risk-server-go/src/riskcheck"

	// 导入所有providers以确保init函数被调用
	_ "ip-risk-server-go/src/core/providers/annotator/gcv"
	_ "ip-risk-server-go/src/core/providers/annotator/vlllm"
	_ "ip-risk-server-go/src/core/providers/llm/eino"
	_ "ip-risk-server-go/src/core/providers/llm/ollama"
	_ "ip-risk-server-go/src/core/providers/llm/openai"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func LoadConfigAndLogger() (*configs.Config, *utils.Logger, error) {
	// 加载配置,默认使用.config.yaml
	config, configPath, err := configs.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	// 初始化日志系统
	logger, err := utils.NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	logger.FormatInfo("日志系统初始化成功, 配置文件路径: %s", configPath)

	return config, logger, nil
}

// BuildGateway 按 selected_module 创建补全和图片标注提供者
func BuildGateway(config *configs.Config, logger *utils.Logger) (*risk.Gateway, []types.Provider, error) {
	var providers []types.Provider

	llmName, llmCfg, ok := config.SelectedLLM()
	if !ok {
		return nil, nil, fmt.Errorf("找不到LLM配置: %s", llmName)
	}
	llmProvider, err := llm.Create(llmCfg.Type, &llm.Config{
		Type:        llmCfg.Type,
		ModelName:   llmCfg.ModelName,
		BaseURL:     llmCfg.BaseURL,
		APIKey:      llmCfg.APIKey,
		Temperature: llmCfg.Temperature,
		MaxTokens:   llmCfg.MaxTokens,
		TopP:        llmCfg.TopP,
		Extra:       llmCfg.Extra,
	})
	if err != nil {
		return nil, nil, err
	}
	providers = append(providers, llmProvider)
	if llmCfg.APIKey == "" && llmCfg.Type != "ollama" {
		logger.Warn("LLM未配置api_key，调用时将由上游返回认证错误", map[string]interface{}{
			"name": llmName,
		})
	}

	// 图片标注服务不可用时只影响图片请求
	var annProvider types.AnnotatorProvider
	annName, annCfg, ok := config.SelectedAnnotator()
	if ok {
		annProvider, err = annotator.Create(annCfg.Type, &annCfg, logger)
		if err != nil {
			logger.Error("图片标注提供者创建失败 %v", err)
			annProvider = nil
		} else {
			providers = append(providers, annProvider)
		}
	} else {
		logger.Warn(fmt.Sprintf("找不到图片标注配置: %s，图片请求将失败", annName))
	}

	policy := risk.PolicyFromConfig(config.Risk, llmCfg)
	logger.Info("风险检查网关初始化完成", map[string]interface{}{
		"llm":        llmName,
		"model":      policy.Model,
		"annotator":  annName,
		"match_mode": policy.MatchMode,
		"min_length": policy.MinLength,
	})

	return risk.NewGateway(policy, llmProvider, annProvider, logger), providers, nil
}

func StartHttpServer(config *configs.Config, logger *utils.Logger, gateway *risk.Gateway, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	// 初始化Gin引擎
	if config.Log.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.SetTrustedProxies(nil)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API路由全部挂载到/api前缀下
	apiGroup := router.Group("/api")

	cfgService, err := cfgserver.NewDefaultCfgService(config, logger)
	if err != nil {
		return nil, err
	}
	if err := cfgService.Start(groupCtx, router, apiGroup); err != nil {
		logger.Error("Cfg 服务启动失败", err)
		return nil, err
	}

	riskService, err := riskcheck.NewDefaultRiskService(config, gateway, logger)
	if err != nil {
		logger.Error("风险检查服务初始化失败 %v", err)
		return nil, err
	}
	if err := riskService.Start(groupCtx, router, apiGroup); err != nil {
		logger.Error("风险检查服务启动失败", err)
		return nil, err
	}

	// HTTP Server（支持优雅关机）
	httpServer := &http.Server{
		Addr:              config.Server.IP + ":" + strconv.Itoa(config.Web.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info(fmt.Sprintf("Gin 服务已启动，访问地址: http://%s", httpServer.Addr))

		// 在单独的 goroutine 中监听关闭信号
		go func() {
			<-groupCtx.Done()
			logger.Info("收到关闭信号，开始关闭HTTP服务...")

			// 创建关闭超时上下文
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP服务关闭失败", err)
			} else {
				logger.Info("HTTP服务已优雅关闭")
			}
		}()

		// ListenAndServe 返回 ErrServerClosed 时表示正常关闭
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP 服务启动失败", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func GracefulShutdown(cancel context.CancelFunc, logger *utils.Logger, g *errgroup.Group) {
	// 监听系统信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// 等待信号或服务异常退出
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case sig := <-sigChan:
		logger.Info(fmt.Sprintf("接收到系统信号: %v，开始优雅关闭服务", sig))
	case err := <-done:
		if err != nil {
			logger.Error("服务异常退出 %v", err)
			os.Exit(1)
		}
		return
	}

	// 取消上下文，通知所有服务开始关闭
	cancel()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("服务关闭过程中出现错误", err)
			os.Exit(1)
		}
		logger.Info("所有服务已优雅关闭")
	case <-time.After(15 * time.Second):
		logger.Error("服务关闭超时，强制退出")
		os.Exit(1)
	}
}

func main() {
	// 先加载 .env，配置中的凭据会回退到环境变量
	envErr := godotenv.Load()

	// 加载配置和初始化日志系统
	config, logger, err := LoadConfigAndLogger()
	if err != nil {
		fmt.Println("加载配置或初始化日志系统失败:", err)
		os.Exit(1)
	}
	defer logger.Close()

	if envErr != nil {
		logger.Warn("未找到 .env 文件，使用系统环境变量")
	}

	gateway, providers, err := BuildGateway(config, logger)
	if err != nil {
		logger.Error("初始化风险检查网关失败 %v", err)
		os.Exit(1)
	}
	defer func() {
		for _, p := range providers {
			if err := p.Cleanup(); err != nil {
				logger.Warn("清理提供者失败 %v", err)
			}
		}
	}()

	// 创建可取消的上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, groupCtx := errgroup.WithContext(ctx)

	if _, err := StartHttpServer(config, logger, gateway, g, groupCtx); err != nil {
		logger.Error("启动服务失败:", err)
		cancel()
		os.Exit(1)
	}

	// 启动优雅关机处理
	GracefulShutdown(cancel, logger, g)

	logger.Info("程序已成功退出")
}
