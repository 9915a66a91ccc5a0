package textmatch

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidConfig 匹配器配置非法
var ErrInvalidConfig = errors.New("textmatch: invalid config")

// DefaultFuzzyThreshold 模糊匹配的默认最低相似度
const DefaultFuzzyThreshold = 0.6

// Strategy 匹配策略名称
type Strategy string

const (
	StrategyExact    Strategy = "exact"    // 完全匹配
	StrategyPrefix   Strategy = "prefix"   // 前缀匹配
	StrategyContains Strategy = "contains" // 包含匹配
	StrategyFuzzy    Strategy = "fuzzy"    // 模糊匹配
)

// Candidate 待匹配的元素：不透明的句柄 + 可见文本
type Candidate[H any] struct {
	Handle H
	Text   string
}

// MatchResult 匹配结果，生成后不再修改
type MatchResult[H any] struct {
	Handle   H        `json:"handle"`
	Text     string   `json:"text"`     // 原始（未归一化）文本
	Score    float64  `json:"score"`    // 置信度 [0, 1]
	Strategy Strategy `json:"strategy"` // 命中的策略
	Reason   string   `json:"reason"`   // 可读的匹配原因
}

// Config 匹配器配置
type Config struct {
	FuzzyThreshold float64 `json:"fuzzy_threshold" toml:"fuzzy_threshold"`
	CaseSensitive  bool    `json:"case_sensitive" toml:"case_sensitive"`
}

// DefaultConfig 返回默认配置（阈值 0.6，不区分大小写）
func DefaultConfig() Config {
	return Config{FuzzyThreshold: DefaultFuzzyThreshold}
}

// Validate 校验配置
func (c Config) Validate() error {
	if math.IsNaN(c.FuzzyThreshold) || c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("%w: fuzzy threshold %v outside [0, 1]", ErrInvalidConfig, c.FuzzyThreshold)
	}
	return nil
}

// Matcher 多策略文本匹配器
//
// 按 exact > prefix > contains > fuzzy 的顺序依次尝试，命中第一个策略即停止，
// 因此每个候选元素最多出现一次，Strategy 可以直接当作匹配原因使用。
// Matcher 只读取构造时的配置，可被多个 goroutine 并发调用。
type Matcher[H any] struct {
	config     Config
	strategies []evaluator
}

// New 创建匹配器
func New[H any](cfg Config) (*Matcher[H], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Matcher[H]{
		config:     cfg,
		strategies: defaultStrategies(cfg.FuzzyThreshold),
	}, nil
}

// Config 返回匹配器的配置副本
func (m *Matcher[H]) Config() Config {
	return m.config
}

// MatchElements 对候选元素进行文本匹配，按置信度降序返回（同分保持输入顺序）
func (m *Matcher[H]) MatchElements(target string, candidates []Candidate[H]) []MatchResult[H] {
	results := make([]MatchResult[H], 0)
	if target == "" || len(candidates) == 0 {
		return results
	}

	normalizedTarget := Normalize(target, m.config.CaseSensitive)
	if normalizedTarget == "" {
		return results
	}

	for _, candidate := range candidates {
		normalizedText := Normalize(candidate.Text, m.config.CaseSensitive)
		if normalizedText == "" {
			continue
		}

		scored, ok := m.evaluate(normalizedTarget, normalizedText)
		if !ok {
			continue
		}

		results = append(results, MatchResult[H]{
			Handle:   candidate.Handle,
			Text:     candidate.Text,
			Score:    clampScore(scored.score),
			Strategy: scored.strategy,
			Reason:   scored.reason,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// BestMatch 返回置信度最高的结果，没有匹配时 ok 为 false
func (m *Matcher[H]) BestMatch(target string, candidates []Candidate[H]) (MatchResult[H], bool) {
	results := m.MatchElements(target, candidates)
	if len(results) == 0 {
		var zero MatchResult[H]
		return zero, false
	}
	return results[0], true
}

func (m *Matcher[H]) evaluate(target, text string) (scoredMatch, bool) {
	for _, s := range m.strategies {
		if scored, ok := s.evaluate(target, text); ok {
			return scored, true
		}
	}
	return scoredMatch{}, false
}

// Match 使用给定配置一次性执行匹配
func Match[H any](target string, candidates []Candidate[H], cfg Config) ([]MatchResult[H], error) {
	m, err := New[H](cfg)
	if err != nil {
		return nil, err
	}
	return m.MatchElements(target, candidates), nil
}

// Best 使用给定配置一次性获取最佳匹配
func Best[H any](target string, candidates []Candidate[H], cfg Config) (MatchResult[H], bool, error) {
	m, err := New[H](cfg)
	if err != nil {
		var zero MatchResult[H]
		return zero, false, err
	}
	result, ok := m.BestMatch(target, candidates)
	return result, ok, nil
}

func clampScore(score float64) float64 {
	switch {
	case math.IsNaN(score) || score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
