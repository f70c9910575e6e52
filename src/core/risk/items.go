package risk

import (
	"strings"

	"ip-risk-server-go/src/core/types"
	"ip-risk-server-go/src/core/utils"
)

// NormalizeDetectedItems 合并标注结果中的logo和OCR片段
// OCR第一个片段是整张图片的聚合文本，不参与合并；结果全部小写并去重
func NormalizeDetectedItems(ann *types.Annotation, sentinel string) []string {
	seen := make(map[string]struct{})
	items := make([]string, 0)

	add := func(label string) {
		label = strings.ToLower(utils.CollapseSpaces(label))
		if label == "" {
			return
		}
		if _, ok := seen[label]; ok {
			return
		}
		seen[label] = struct{}{}
		items = append(items, label)
	}

	if ann != nil {
		for _, logo := range ann.Logos {
			add(logo)
		}
		if len(ann.Texts) > 1 {
			for _, text := range ann.Texts[1:] {
				add(text)
			}
		}
	}

	if len(items) == 0 {
		return []string{sentinel}
	}
	return items
}
