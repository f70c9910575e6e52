package risk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ip-risk-server-go/src/core/metrics"
	"ip-risk-server-go/src/core/types"
	"ip-risk-server-go/src/core/utils"

	"golang.org/x/time/rate"
)

// 上游服务名，用于日志、指标和兜底错误信息
const (
	ServiceCompletion = "completion"
	ServiceAnnotation = "annotation"
)

var fallbackMessages = map[string]string{
	ServiceCompletion: "Completion API error",
	ServiceAnnotation: "Image annotation API error",
}

// Request 一次风险检查请求，文本和图片至少提供一个
type Request struct {
	Prompt string
	Image  []byte
}

// Result 风险检查结果，创建后不再修改
type Result struct {
	RiskLevel     int      `json:"riskLevel"`
	Explanation   string   `json:"explanation"`
	DetectedItems []string `json:"detectedItems,omitempty"`
}

// Gateway 校验输入、调用上游服务并规范化回复
type Gateway struct {
	policy    Policy
	llm       types.LLMProvider
	annotator types.AnnotatorProvider
	limiter   *rate.Limiter
	logger    *utils.Logger
}

// NewGateway 创建网关，annotator 为空时拒绝所有图片请求
func NewGateway(policy Policy, llm types.LLMProvider, annotator types.AnnotatorProvider, logger *utils.Logger) *Gateway {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if policy.RPM > 0 {
		// Limit 设置为 RPM/60，Burst 设置为 policy.Burst
		limiter = rate.NewLimiter(rate.Limit(float64(policy.RPM)/60.0), policy.Burst)
	}
	return &Gateway{
		policy:    policy,
		llm:       llm,
		annotator: annotator,
		limiter:   limiter,
		logger:    logger,
	}
}

// Policy 返回网关使用的策略副本
func (g *Gateway) Policy() Policy {
	return g.policy
}

// Check 执行一次风险检查
func (g *Gateway) Check(ctx context.Context, req Request) (result *Result, err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = KindOf(err).String()
		} else {
			metrics.RiskLevels.Observe(float64(result.RiskLevel))
		}
		metrics.ChecksTotal.WithLabelValues(outcome).Inc()
	}()

	text := req.Prompt
	hasText := strings.TrimSpace(text) != ""
	hasImage := len(req.Image) > 0

	if !hasText && !hasImage {
		return nil, NewError(KindInvalidInput, MsgInputRequired, nil)
	}

	if hasText {
		if relErr := g.policy.CheckRelevance(text); relErr != nil {
			if !hasImage {
				g.logger.Info("文本与知识产权无关，拒绝请求", map[string]interface{}{
					"length": len(text),
					"reason": errors.Unwrap(relErr),
				})
				return nil, relErr
			}
			// 同时上传了图片时，无关文本只是不参与提示词
			g.logger.Info("文本与知识产权无关，仅分析图片")
			text = ""
		}
	}

	if g.policy.UpstreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.policy.UpstreamTimeout)
		defer cancel()
	}

	var detected []string
	if hasImage {
		detected, err = g.annotate(ctx, req.Image)
		if err != nil {
			return nil, err
		}
	}

	prompt := g.policy.BuildPrompt(text, detected, hasImage)
	reply, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	parsed, err := ParseReply(reply)
	if err != nil {
		g.logger.Warn("补全服务回复格式不正确", map[string]interface{}{
			"reply": reply,
			"error": err.Error(),
		})
		return nil, err
	}

	return &Result{
		RiskLevel:     parsed.RiskLevel,
		Explanation:   parsed.Explanation,
		DetectedItems: detected,
	}, nil
}

// annotate 调用图片标注服务并合并标注结果
func (g *Gateway) annotate(ctx context.Context, image []byte) ([]string, error) {
	if g.annotator == nil {
		return nil, NewError(KindUpstream, fallbackMessages[ServiceAnnotation], errors.New("no annotator configured"))
	}

	start := time.Now()
	ann, err := g.annotator.Annotate(ctx, image)
	metrics.ObserveUpstream(ServiceAnnotation, start, err)
	if err != nil {
		g.logger.Error("图片标注失败 %v", err)
		return nil, classifyUpstream(ServiceAnnotation, err)
	}

	items := NormalizeDetectedItems(ann, g.policy.Sentinel)
	g.logger.Debug("图片标注完成", map[string]interface{}{
		"logos":    len(ann.Logos),
		"texts":    len(ann.Texts),
		"detected": items,
	})
	return items, nil
}

// complete 调用补全服务，返回原始回复文本
func (g *Gateway) complete(ctx context.Context, prompt string) (string, error) {
	if g.llm == nil {
		return "", NewError(KindUpstream, fallbackMessages[ServiceCompletion], errors.New("no completion provider configured"))
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", NewError(KindUpstream, fallbackMessages[ServiceCompletion], fmt.Errorf("rate limiter: %w", err))
	}

	temperature := g.policy.Temperature
	start := time.Now()
	reply, err := g.llm.Complete(ctx, types.CompletionRequest{
		Model:       g.policy.Model,
		Temperature: &temperature,
		TopP:        g.policy.TopP,
		Messages: []types.Message{
			{Role: "user", Content: prompt},
		},
	})
	metrics.ObserveUpstream(ServiceCompletion, start, err)
	if err != nil {
		g.logger.Error("补全服务调用失败 %v", err)
		return "", classifyUpstream(ServiceCompletion, err)
	}
	return reply, nil
}

// classifyUpstream 将提供者返回的错误映射为网关错误分类
func classifyUpstream(service string, err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.Is(err, types.ErrMalformedReply) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return NewError(KindMalformedUpstreamResponse, MsgMalformedResponse, err)
	}

	var upstreamErr *types.UpstreamError
	if errors.As(err, &upstreamErr) && upstreamErr.Message != "" {
		return NewError(KindUpstream, upstreamErr.Message, err)
	}
	return NewError(KindUpstream, fallbackMessages[service], err)
}
