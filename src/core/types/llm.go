package types

import (
	"context"
	"errors"
	"fmt"
)

// ErrMalformedReply 上游返回的数据无法按约定结构解析
var ErrMalformedReply = errors.New("malformed upstream reply")

// Message 对话消息结构
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest 一次补全调用的参数，采样参数由调用方显式传入
type CompletionRequest struct {
	Model       string
	Temperature *float64 // nil 表示使用提供者配置，0 会被显式发送
	TopP        float64  // 0 表示不设置
	Messages    []Message
}

// Annotation 图片标注结果
// Texts[0] 按惯例是整张图片的聚合文本，其后为逐词片段
type Annotation struct {
	Logos []string `json:"logos"`
	Texts []string `json:"texts"`
}

// UpstreamError 上游服务调用失败
type UpstreamError struct {
	Service    string // 服务名，例如 completion、annotation
	StatusCode int    // HTTP状态码，网络错误时为0
	Message    string // 上游返回的错误信息，可能为空
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s upstream error (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s upstream error (status %d): %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s upstream error (status %d)", e.Service, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Provider 基础提供者接口
type Provider interface {
	Initialize() error
	Cleanup() error
}

// LLMProvider 补全服务提供者接口
type LLMProvider interface {
	Provider
	// Complete 发送一次非流式补全请求，返回第一条回复的文本
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// AnnotatorProvider 图片标注服务提供者接口
type AnnotatorProvider interface {
	Provider
	Annotate(ctx context.Context, image []byte) (*Annotation, error)
}
