package executor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/browserwing/locator/pkg/textmatch"
)

var (
	// ErrNoMatch 没有元素匹配目标文本
	ErrNoMatch = errors.New("no element matches the target text")
	// ErrIndexOutOfRange 指定的索引超出结果范围
	ErrIndexOutOfRange = errors.New("index out of range")
)

// MatchOption 需要调用方选择时展示的一个候选结果
type MatchOption struct {
	Index    int                `json:"index"`
	Text     string             `json:"text"`
	Strategy textmatch.Strategy `json:"strategy"`
	Score    float64            `json:"score"`
	Reason   string             `json:"reason"`
}

// AmbiguousError 多个结果都可能是目标，需要调用方通过 index 指定
type AmbiguousError struct {
	Target  string        `json:"target"`
	Options []MatchOption `json:"options"`
}

func (e *AmbiguousError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "multiple elements match '%s', set index to choose one (index=0 is the first):", e.Target)
	for _, opt := range e.Options {
		fmt.Fprintf(&b, "\nindex %d: %s (%s, %.2f)", opt.Index, truncateRunes(opt.Text, 50), opt.Strategy, opt.Score)
	}
	return b.String()
}

func newAmbiguousError[H any](target string, results []textmatch.MatchResult[H]) *AmbiguousError {
	return &AmbiguousError{Target: target, Options: matchOptions(results)}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
