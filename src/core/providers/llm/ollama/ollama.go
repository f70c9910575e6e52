package ollama

import (
	"context"
	"fmt"
	"strings"

	"ip-risk-server-go/src/core/providers/llm"
	"ip-risk-server-go/src/core/types"

	"github.com/sashabaranov/go-openai"
)

// Provider Ollama LLM提供者
type Provider struct {
	*llm.BaseProvider
	client  *openai.Client
	isQwen3 bool
}

// 注册提供者
func init() {
	llm.Register("ollama", NewProvider)
}

// NewProvider 创建Ollama提供者
func NewProvider(config *llm.Config) (llm.Provider, error) {
	base := llm.NewBaseProvider(config)
	provider := &Provider{
		BaseProvider: base,
	}

	// 检查是否是qwen3模型
	provider.isQwen3 = config.ModelName != "" && strings.HasPrefix(strings.ToLower(config.ModelName), "qwen3")

	return provider, nil
}

// Initialize 初始化提供者
func (p *Provider) Initialize() error {
	config := p.Config()
	baseURL := config.BaseURL
	if baseURL == "" {
		// 尝试从url字段获取
		if url, ok := config.Extra["url"].(string); ok {
			baseURL = url
		}
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	// 确保URL以/v1结尾
	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL = baseURL + "/v1"
	}
	config.BaseURL = baseURL

	if config.ModelName == "" {
		return fmt.Errorf("缺少Ollama模型名称配置")
	}

	// Ollama不需要真正的API key，但openai客户端需要一个值
	clientConfig := openai.DefaultConfig("ollama")
	clientConfig.BaseURL = baseURL

	p.client = openai.NewClientWithConfig(clientConfig)
	return nil
}

// Cleanup 清理资源
func (p *Provider) Cleanup() error {
	return nil
}

// Complete types.LLMProvider接口实现
func (p *Provider) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	// 如果是qwen3模型，在用户最后一条消息中添加/no_think指令
	if p.isQwen3 {
		req.Messages = addNoThinkDirective(req.Messages)
	}
	return llm.CompleteWithClient(ctx, p.client, p.Config(), req)
}

// addNoThinkDirective 在最后一条用户消息末尾追加 /no_think
func addNoThinkDirective(messages []types.Message) []types.Message {
	out := make([]types.Message, len(messages))
	copy(out, messages)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role == "user" {
			if !strings.Contains(out[i].Content, "/no_think") {
				out[i].Content += " /no_think"
			}
			break
		}
	}
	return out
}
