package riskcheck

// CheckRequest 风险检查请求体
type CheckRequest struct {
	Prompt      string `json:"prompt"`      // 文本描述，可为空
	ImageBase64 string `json:"imageBase64"` // data URL 或纯base64，可为空
}

// ErrorResponse 错误响应，所有非200响应都使用该结构
type ErrorResponse struct {
	Error string `json:"error"`
}
