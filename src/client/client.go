package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// checkPath 风险检查接口路径
const checkPath = "/api/check-ip-risk"

// ErrEmptyInput 没有可提交的内容，不会发出请求
var ErrEmptyInput = errors.New("Please enter text or select an image.")

// Result 服务端返回的检查结果
type Result struct {
	RiskLevel     int      `json:"riskLevel"`
	Explanation   string   `json:"explanation"`
	DetectedItems []string `json:"detectedItems,omitempty"`
}

// Severity 结果的展示分级
func (r *Result) Severity() Severity {
	return SeverityOf(r.RiskLevel)
}

// APIError 服务端返回的非200响应
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client 风险检查接口客户端
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	history    *History
}

// Option 客户端选项
type Option func(*Client)

// WithToken 设置 Authorization: Bearer 令牌
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient 替换默认的 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New 创建客户端，baseURL 例如 http://localhost:8000
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		history:    &History{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// History 本客户端成功检查的历史记录
func (c *Client) History() *History {
	return c.history
}

type checkRequest struct {
	Prompt      string `json:"prompt,omitempty"`
	ImageBase64 string `json:"imageBase64,omitempty"`
}

// Check 提交一次检查，成功后写入历史记录
func (c *Client) Check(ctx context.Context, in Input) (*Result, error) {
	var (
		body  checkRequest
		entry HistoryEntry
	)
	switch v := in.(type) {
	case TextInput:
		if strings.TrimSpace(v.Prompt) == "" {
			return nil, ErrEmptyInput
		}
		body.Prompt = v.Prompt
		entry = HistoryEntry{Prompt: v.Prompt, Type: EntryText}
	case ImageInput:
		if len(v.Data) == 0 {
			return nil, ErrEmptyInput
		}
		body.ImageBase64 = v.DataURL()
		entry = HistoryEntry{Prompt: v.Name, Type: EntryImage}
	default:
		return nil, ErrEmptyInput
	}

	result, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	entry.RiskLevel = result.RiskLevel
	entry.Explanation = result.Explanation
	c.history.Add(entry)
	return result, nil
}

func (c *Client) post(ctx context.Context, body checkRequest) (*Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+checkPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	return &result, nil
}
