package textmatch

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	exactScore         = 1.0
	prefixScore        = 0.9
	containsBase       = 0.8
	containsPenaltyMax = 0.3
	containsFloor      = 0.5
)

type scoredMatch struct {
	strategy Strategy
	score    float64
	reason   string
}

// evaluator 单个匹配策略，输入均为归一化后的文本
type evaluator struct {
	name     Strategy
	evaluate func(target, text string) (scoredMatch, bool)
}

// defaultStrategies 按优先级排列的策略列表，新增策略时追加到合适的位置即可
func defaultStrategies(fuzzyThreshold float64) []evaluator {
	return []evaluator{
		{name: StrategyExact, evaluate: matchExact},
		{name: StrategyPrefix, evaluate: matchPrefix},
		{name: StrategyContains, evaluate: matchContains},
		{name: StrategyFuzzy, evaluate: fuzzyEvaluator(fuzzyThreshold)},
	}
}

func matchExact(target, text string) (scoredMatch, bool) {
	if target != text {
		return scoredMatch{}, false
	}
	return scoredMatch{
		strategy: StrategyExact,
		score:    exactScore,
		reason:   fmt.Sprintf("exact match: '%s'", target),
	}, true
}

func matchPrefix(target, text string) (scoredMatch, bool) {
	if !strings.HasPrefix(text, target) {
		return scoredMatch{}, false
	}
	return scoredMatch{
		strategy: StrategyPrefix,
		score:    prefixScore,
		reason:   fmt.Sprintf("prefix match: '%s' is a prefix of '%s'", target, text),
	}, true
}

// matchContains 包含匹配，带长度惩罚
//
// score = max(0.8 - (1 - len(target)/len(text)*0.3), 0.5)，长度按字符（rune）计算。
func matchContains(target, text string) (scoredMatch, bool) {
	if !strings.Contains(text, target) {
		return scoredMatch{}, false
	}

	targetLen := utf8.RuneCountInString(target)
	textLen := utf8.RuneCountInString(text)
	return scoredMatch{
		strategy: StrategyContains,
		score:    containsScore(targetLen, textLen),
		reason:   fmt.Sprintf("contains match: '%s' contains '%s' (length ratio: %d/%d)", text, target, targetLen, textLen),
	}, true
}

func containsScore(targetLen, textLen int) float64 {
	if textLen == 0 {
		return containsFloor
	}
	lengthPenalty := float64(targetLen) / float64(textLen) * containsPenaltyMax
	score := containsBase - (1 - lengthPenalty)
	if score < containsFloor {
		score = containsFloor
	}
	return score
}

func fuzzyEvaluator(threshold float64) func(target, text string) (scoredMatch, bool) {
	return func(target, text string) (scoredMatch, bool) {
		similarity := Similarity(target, text)
		if similarity < threshold {
			return scoredMatch{}, false
		}
		return scoredMatch{
			strategy: StrategyFuzzy,
			score:    similarity,
			reason:   fmt.Sprintf("fuzzy match: similarity %.2f (threshold: %v)", similarity, threshold),
		}, true
	}
}
