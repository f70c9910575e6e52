package risk

import (
	"strings"
	"time"

	"ip-risk-server-go/src/configs"
)

// 关键词匹配方式
const (
	MatchSubstring = "substring"
	MatchWord      = "word"
)

// DefaultDenylist 明显与知识产权无关的寒暄词
var DefaultDenylist = []string{
	"hello",
	"hi",
	"hey",
	"selam",
	"merhaba",
	"naber",
	"test",
	"thanks",
	"thank you",
	"how are you",
	"what's up",
	"good morning",
	"good night",
	"bye",
	"see you",
}

// DefaultInstruction 固定两行回复格式的提示词
const DefaultInstruction = `Please provide a risk level (0-100%) and a detailed explanation regarding intellectual property risk for the following input. Respond ONLY in this format:
RISK: <percentage>
EXPLANATION: <detailed explanation>`

// DefaultSentinel 图片已检查但没有任何标注时的占位项
const DefaultSentinel = "no detected logos or text"

// Policy 网关的全部可调参数
type Policy struct {
	Denylist        []string
	MatchMode       string
	MinLength       int
	Instruction     string
	Sentinel        string
	Model           string
	Temperature     float64
	TopP            float64
	UpstreamTimeout time.Duration
	RPM             int
	Burst           int
}

// DefaultPolicy 返回默认策略
func DefaultPolicy() Policy {
	return Policy{
		Denylist:    append([]string(nil), DefaultDenylist...),
		MatchMode:   MatchSubstring,
		MinLength:   10,
		Instruction: DefaultInstruction,
		Sentinel:    DefaultSentinel,
		Model:       "compound-beta",
		Temperature: 0.2,
	}
}

// PolicyFromConfig 由配置文件构建策略，未配置的项使用默认值
func PolicyFromConfig(risk configs.RiskConfig, llm configs.LLMConfig) Policy {
	p := DefaultPolicy()
	if len(risk.Denylist) > 0 {
		p.Denylist = make([]string, 0, len(risk.Denylist))
		for _, kw := range risk.Denylist {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				p.Denylist = append(p.Denylist, kw)
			}
		}
	}
	if risk.MatchMode == MatchWord {
		p.MatchMode = MatchWord
	}
	if risk.MinLength > 0 {
		p.MinLength = risk.MinLength
	}
	if strings.TrimSpace(risk.Instruction) != "" {
		p.Instruction = strings.TrimSpace(risk.Instruction)
	}
	if risk.Sentinel != "" {
		p.Sentinel = risk.Sentinel
	}
	if risk.UpstreamTimeout != "" {
		if d, err := time.ParseDuration(risk.UpstreamTimeout); err == nil && d > 0 {
			p.UpstreamTimeout = d
		}
	}
	if risk.RPM > 0 {
		p.RPM = risk.RPM
		p.Burst = risk.Burst
		if p.Burst <= 0 {
			p.Burst = 1
		}
	}
	if llm.ModelName != "" {
		p.Model = llm.ModelName
	}
	if llm.Temperature != nil {
		p.Temperature = *llm.Temperature
	}
	if llm.TopP > 0 {
		p.TopP = llm.TopP
	}
	return p
}
