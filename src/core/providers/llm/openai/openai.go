package openai

import (
	"context"
	"fmt"

	"ip-risk-server-go/src/core/providers/llm"
	"ip-risk-server-go/src/core/types"

	"github.com/sashabaranov/go-openai"
)

// Provider OpenAI兼容接口的LLM提供者（OpenAI、Groq等）
type Provider struct {
	*llm.BaseProvider
	client *openai.Client
}

// 注册提供者
func init() {
	llm.Register("openai", NewProvider)
}

// NewProvider 创建OpenAI提供者
func NewProvider(config *llm.Config) (llm.Provider, error) {
	base := llm.NewBaseProvider(config)
	provider := &Provider{
		BaseProvider: base,
	}

	return provider, nil
}

// Initialize 初始化提供者
// API key 为空时不报错，鉴权失败在调用时由上游返回
func (p *Provider) Initialize() error {
	config := p.Config()
	if config.ModelName == "" {
		return fmt.Errorf("missing model name")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	p.client = openai.NewClientWithConfig(clientConfig)
	return nil
}

// Cleanup 清理资源
func (p *Provider) Cleanup() error {
	return nil
}

// Complete types.LLMProvider接口实现
func (p *Provider) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	return llm.CompleteWithClient(ctx, p.client, p.Config(), req)
}
