package vlllm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ip-risk-server-go/src/core/providers/annotator"
	"ip-risk-server-go/src/core/providers/llm"
	"ip-risk-server-go/src/core/types"
	"ip-risk-server-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

// annotatePrompt 要求视觉模型只返回JSON
const annotatePrompt = `List every brand logo and every piece of readable text in this image.
Respond ONLY with JSON in this exact shape, without any other words:
{"logos": ["<logo name>", ...], "texts": ["<text fragment>", ...]}`

// Provider 视觉大模型标注提供者，openai 走多模态接口，ollama 走原生 /api/chat
type Provider struct {
	config *annotator.Config
	logger *utils.Logger

	openaiClient *openai.Client // 用于 vlllm 类型
	httpClient   *http.Client   // 用于 ollama-vision 类型
}

// OllamaRequest Ollama API请求结构
type OllamaRequest struct {
	Model    string                 `json:"model"`
	Messages []OllamaMessage        `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   string                 `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// OllamaMessage Ollama消息结构
type OllamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // 纯base64，不带data URL前缀
}

// OllamaResponse Ollama API响应结构
type OllamaResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

type modelAnnotation struct {
	Logos []string `json:"logos"`
	Texts []string `json:"texts"`
}

func init() {
	annotator.Register("vlllm", NewProvider)
	annotator.Register("ollama-vision", NewProvider)
}

// NewProvider 创建视觉大模型标注提供者
func NewProvider(config *annotator.Config, logger *utils.Logger) (types.AnnotatorProvider, error) {
	return &Provider{
		config:     config,
		logger:     logger,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Initialize 初始化Provider
func (p *Provider) Initialize() error {
	if p.config.ModelName == "" {
		return fmt.Errorf("视觉模型名称不能为空")
	}

	switch strings.ToLower(p.config.Type) {
	case "vlllm":
		clientConfig := openai.DefaultConfig(p.config.APIKey)
		if p.config.BaseURL != "" {
			clientConfig.BaseURL = p.config.BaseURL
		}
		p.openaiClient = openai.NewClientWithConfig(clientConfig)
	case "ollama-vision":
		if p.config.BaseURL == "" {
			p.config.BaseURL = "http://localhost:11434"
		}
	default:
		return fmt.Errorf("不支持的视觉标注类型: %s", p.config.Type)
	}

	p.logger.Debug("视觉标注提供者初始化成功", map[string]interface{}{
		"type":       p.config.Type,
		"model_name": p.config.ModelName,
	})
	return nil
}

// Cleanup 清理资源
func (p *Provider) Cleanup() error {
	return nil
}

// Annotate 让视觉模型识别图片中的logo和文字
func (p *Provider) Annotate(ctx context.Context, image []byte) (*types.Annotation, error) {
	var (
		content string
		err     error
	)
	if strings.ToLower(p.config.Type) == "ollama-vision" {
		content, err = p.annotateWithOllama(ctx, image)
	} else {
		content, err = p.annotateWithOpenAI(ctx, image)
	}
	if err != nil {
		return nil, err
	}

	parsed, err := decodeAnnotation(content)
	if err != nil {
		p.logger.Warn("视觉模型回复无法解析", map[string]interface{}{
			"content": content,
		})
		return nil, err
	}
	return parsed, nil
}

func (p *Provider) annotateWithOpenAI(ctx context.Context, image []byte) (string, error) {
	mime := http.DetectContentType(image)
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(image))

	resp, err := p.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.config.ModelName,
		Temperature: float32(p.config.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: annotatePrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
	})
	if err != nil {
		p.logger.Error("视觉模型调用失败 %v", err)
		return "", llm.WrapOpenAIError(annotator.ServiceName, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: vision response has no choices", types.ErrMalformedReply)
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *Provider) annotateWithOllama(ctx context.Context, image []byte) (string, error) {
	body, err := json.Marshal(OllamaRequest{
		Model:  p.config.ModelName,
		Stream: false,
		Format: "json",
		Messages: []OllamaMessage{
			{
				Role:    "user",
				Content: annotatePrompt,
				Images:  []string{base64.StdEncoding.EncodeToString(image)},
			},
		},
		Options: map[string]interface{}{
			"temperature": p.config.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("请求序列化失败: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", strings.TrimSuffix(p.config.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("创建Ollama请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &types.UpstreamError{Service: annotator.ServiceName, Err: err}
	}
	defer resp.Body.Close()

	var out OllamaResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode != http.StatusOK {
		return "", &types.UpstreamError{
			Service:    annotator.ServiceName,
			StatusCode: resp.StatusCode,
			Message:    out.Error,
			Err:        fmt.Errorf("ollama returned %s", resp.Status),
		}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: %v", types.ErrMalformedReply, decodeErr)
	}
	return out.Message.Content, nil
}

// decodeAnnotation 截取回复中的JSON对象并转换为标注结果
// 模型不返回整页文本，这里拼接片段作为 Texts[0]
func decodeAnnotation(content string) (*types.Annotation, error) {
	content = llm.StripThinkBlocks(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in vision reply", types.ErrMalformedReply)
	}

	var m modelAnnotation
	if err := json.Unmarshal([]byte(content[start:end+1]), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedReply, err)
	}

	ann := &types.Annotation{Logos: m.Logos}
	if len(m.Texts) > 0 {
		ann.Texts = append([]string{strings.Join(m.Texts, " ")}, m.Texts...)
	}
	return ann, nil
}
