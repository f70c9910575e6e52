package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"ip-risk-server-go/src/core/types"

	"github.com/sashabaranov/go-openai"
)

// ServiceName 补全服务在错误和指标中的名称
const ServiceName = "completion"

// Config LLM配置结构
type Config struct {
	Type        string                 `yaml:"type"`
	ModelName   string                 `yaml:"model_name"`
	BaseURL     string                 `yaml:"base_url,omitempty"`
	APIKey      string                 `yaml:"api_key,omitempty"`
	Temperature *float64               `yaml:"temperature,omitempty"`
	MaxTokens   int                    `yaml:"max_tokens,omitempty"`
	TopP        float64                `yaml:"top_p,omitempty"`
	Extra       map[string]interface{} `yaml:",inline"`
}

// Provider LLM提供者接口
type Provider interface {
	types.LLMProvider
}

// BaseProvider LLM基础实现
type BaseProvider struct {
	config *Config
}

// Config 获取配置
func (p *BaseProvider) Config() *Config {
	return p.config
}

// NewBaseProvider 创建LLM基础提供者
func NewBaseProvider(config *Config) *BaseProvider {
	return &BaseProvider{
		config: config,
	}
}

// Initialize 初始化提供者
func (p *BaseProvider) Initialize() error {
	return nil
}

// Cleanup 清理资源
func (p *BaseProvider) Cleanup() error {
	return nil
}

// Factory LLM工厂函数类型
type Factory func(config *Config) (Provider, error)

var (
	factories = make(map[string]Factory)
)

// Register 注册LLM提供者工厂
func Register(name string, factory Factory) {
	factories[name] = factory
}

// Create 创建LLM提供者实例
func Create(name string, config *Config) (Provider, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("未知的LLM提供者: %s", name)
	}

	provider, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("创建LLM提供者失败: %v", err)
	}

	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("初始化LLM提供者失败: %v", err)
	}

	return provider, nil
}

// GetRegisteredProviders 获取已注册的提供者列表
func GetRegisteredProviders() []string {
	var names []string
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// CompleteWithClient 使用 OpenAI 兼容客户端发送一次非流式补全
func CompleteWithClient(ctx context.Context, client *openai.Client, config *Config, req types.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = config.ModelName
	}
	temperature := req.Temperature
	if temperature == nil {
		temperature = config.Temperature
	}
	topP := req.TopP
	if topP == 0 {
		topP = config.TopP
	}

	chatMessages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	request := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  chatMessages,
		TopP:      float32(topP),
		MaxTokens: config.MaxTokens,
	}
	if temperature != nil {
		request.Temperature = float32(*temperature)
		// go-openai 的 temperature 带 omitempty，0 需要用最小正数表示才会被发送
		if request.Temperature == 0 {
			request.Temperature = math.SmallestNonzeroFloat32
		}
	}

	resp, err := client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", WrapOpenAIError(ServiceName, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", types.ErrMalformedReply)
	}
	return StripThinkBlocks(resp.Choices[0].Message.Content), nil
}

// WrapOpenAIError 将 go-openai 的错误转换为上游错误，保留上游返回的错误信息
func WrapOpenAIError(service string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &types.UpstreamError{
			Service:    service,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &types.UpstreamError{
			Service:    service,
			StatusCode: reqErr.HTTPStatusCode,
			Err:        err,
		}
	}

	return &types.UpstreamError{Service: service, Err: err}
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinkBlocks 去掉推理模型输出的思考内容
func StripThinkBlocks(content string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(content, ""))
}
