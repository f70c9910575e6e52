package eino

import (
	"context"
	"fmt"

	"ip-risk-server-go/src/core/providers/llm"
	"ip-risk-server-go/src/core/types"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Provider 基于 eino ChatModel 的LLM提供者
type Provider struct {
	*llm.BaseProvider
	chatModel model.ChatModel
}

// 注册提供者
func init() {
	llm.Register("eino", NewProvider)
}

// NewProvider 创建eino提供者
func NewProvider(config *llm.Config) (llm.Provider, error) {
	return &Provider{BaseProvider: llm.NewBaseProvider(config)}, nil
}

// Initialize 初始化 ChatModel
func (p *Provider) Initialize() error {
	config := p.Config()
	modelConfig := &openai.ChatModelConfig{
		BaseURL: config.BaseURL,
		APIKey:  config.APIKey,
		Model:   config.ModelName,
	}
	if config.MaxTokens > 0 {
		maxTokens := config.MaxTokens
		modelConfig.MaxTokens = &maxTokens
	}

	chatModel, err := openai.NewChatModel(context.Background(), modelConfig)
	if err != nil {
		return fmt.Errorf("LLM 初始化失败: %w", err)
	}
	p.chatModel = chatModel
	return nil
}

// Complete types.LLMProvider接口实现
func (p *Provider) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	messages := make([]*schema.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, &schema.Message{
			Role:    schema.RoleType(msg.Role),
			Content: msg.Content,
		})
	}

	var opts []model.Option
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}
	if req.Temperature != nil {
		opts = append(opts, model.WithTemperature(float32(*req.Temperature)))
	}
	if req.TopP > 0 {
		opts = append(opts, model.WithTopP(float32(req.TopP)))
	}

	resp, err := p.chatModel.Generate(ctx, messages, opts...)
	if err != nil {
		return "", &types.UpstreamError{Service: llm.ServiceName, Err: err}
	}
	if resp == nil {
		return "", fmt.Errorf("%w: empty message", types.ErrMalformedReply)
	}
	return llm.StripThinkBlocks(resp.Content), nil
}
