package risk

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// CheckRelevance 过滤寒暄和过短的文本，命中时返回 IrrelevantInput
func (p Policy) CheckRelevance(text string) error {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < p.MinLength {
		return NewError(KindIrrelevantInput, MsgIrrelevantInput, nil)
	}
	if kw, ok := p.matchDenylist(text); ok {
		return NewError(KindIrrelevantInput, MsgIrrelevantInput, &denylistHit{keyword: kw})
	}
	return nil
}

func (p Policy) matchDenylist(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range p.Denylist {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if p.MatchMode == MatchWord {
			if wordPattern(kw).MatchString(lower) {
				return kw, true
			}
			continue
		}
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// 按关键词缓存编译好的整词正则，关键词来自配置，数量有限
var wordPatterns sync.Map

func wordPattern(kw string) *regexp.Regexp {
	if re, ok := wordPatterns.Load(kw); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`(^|[^\p{L}\p{N}'])` + regexp.QuoteMeta(kw) + `($|[^\p{L}\p{N}'])`)
	actual, _ := wordPatterns.LoadOrStore(kw, re)
	return actual.(*regexp.Regexp)
}

type denylistHit struct {
	keyword string
}

func (d *denylistHit) Error() string {
	return "denylisted keyword: " + d.keyword
}
