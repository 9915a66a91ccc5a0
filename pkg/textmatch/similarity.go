package textmatch

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Normalize 归一化文本：可选转小写，合并连续空白为单个空格并去掉首尾空白
func Normalize(text string, caseSensitive bool) string {
	if !caseSensitive {
		text = strings.ToLower(text)
	}
	return strings.Join(strings.Fields(text), " ")
}

// Similarity 计算两个字符串的 Ratcliff/Obershelp 相似度，范围 [0, 1]
//
// 以字符（rune）为单位比较，任一字符串为空时返回 0。
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	matcher := difflib.NewMatcher(splitRunes(a), splitRunes(b))
	return matcher.Ratio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
