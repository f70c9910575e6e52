package risk

import (
	"regexp"
	"strconv"
	"strings"
)

// 标签两侧允许出现 Markdown 加粗符号，例如 **RISK:** 73
var (
	riskPattern        = regexp.MustCompile(`(?i)\**RISK\**:\**\s*\**(\d{1,3})\b`)
	explanationPattern = regexp.MustCompile(`(?is)\**EXPLANATION\**:\**\s*(.*)`)
	riskLinePattern    = regexp.MustCompile(`(?im)^[\s*#]*RISK\**:`)
)

// Parsed 补全服务回复解析后的两个字段
type Parsed struct {
	RiskLevel   int
	Explanation string
}

// ParseReply 从自由文本回复中提取风险值和解释
// 任一字段缺失、风险值超出0-100或解释为空时返回 MalformedUpstreamResponse
func ParseReply(reply string) (Parsed, error) {
	riskMatch := riskPattern.FindStringSubmatch(reply)
	if riskMatch == nil {
		return Parsed{}, NewError(KindMalformedUpstreamResponse, MsgMalformedResponse, errMissingField("RISK"))
	}
	level, err := strconv.Atoi(riskMatch[1])
	if err != nil || level > 100 {
		return Parsed{}, NewError(KindMalformedUpstreamResponse, MsgMalformedResponse, errOutOfRange(riskMatch[1]))
	}

	explanationMatch := explanationPattern.FindStringSubmatch(reply)
	if explanationMatch == nil {
		return Parsed{}, NewError(KindMalformedUpstreamResponse, MsgMalformedResponse, errMissingField("EXPLANATION"))
	}
	explanation := explanationMatch[1]
	// 字段顺序颠倒时，解释后面会跟着 RISK 行
	if loc := riskLinePattern.FindStringIndex(explanation); loc != nil {
		explanation = explanation[:loc[0]]
	}
	explanation = strings.TrimSpace(explanation)
	if explanation == "" {
		return Parsed{}, NewError(KindMalformedUpstreamResponse, MsgMalformedResponse, errMissingField("EXPLANATION"))
	}

	return Parsed{RiskLevel: level, Explanation: explanation}, nil
}

type parseError string

func (e parseError) Error() string { return string(e) }

func errMissingField(field string) error {
	return parseError("reply has no " + field + " field")
}

func errOutOfRange(value string) error {
	return parseError("risk value out of range: " + value)
}
