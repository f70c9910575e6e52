package utils

import (
	"strings"
)

// CollapseSpaces 将连续空白折叠为一个空格并去掉首尾空白
func CollapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
