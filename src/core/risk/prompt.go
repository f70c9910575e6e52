package risk

import (
	"strings"
)

// BuildPrompt 组装发送给补全服务的单条指令
// 图片标注和文本可以同时出现，按顺序拼接
func (p Policy) BuildPrompt(text string, detected []string, imageProcessed bool) string {
	var sb strings.Builder
	sb.WriteString(p.Instruction)

	if imageProcessed {
		sb.WriteString("\nDetected logos and text in the image: ")
		sb.WriteString(strings.Join(detected, ", "))
	}

	if text = strings.TrimSpace(text); text != "" {
		sb.WriteString("\nInput: ")
		sb.WriteString(text)
	}

	return sb.String()
}
