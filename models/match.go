package models

import "github.com/browserwing/locator/pkg/textmatch"

// TextCandidate 调用方提供的候选项，ID 作为匹配结果的句柄原样返回
type TextCandidate struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// MatchRequest 纯文本匹配请求
type MatchRequest struct {
	Target         string          `json:"target"`
	Candidates     []TextCandidate `json:"candidates"`
	FuzzyThreshold *float64        `json:"fuzzy_threshold,omitempty"` // 为空时使用服务端配置
	CaseSensitive  *bool           `json:"case_sensitive,omitempty"`
}

// MatcherConfig 以 base 为基础，叠加请求中指定的选项
func (r *MatchRequest) MatcherConfig(base textmatch.Config) textmatch.Config {
	cfg := base
	if r.FuzzyThreshold != nil {
		cfg.FuzzyThreshold = *r.FuzzyThreshold
	}
	if r.CaseSensitive != nil {
		cfg.CaseSensitive = *r.CaseSensitive
	}
	return cfg
}

// MatchCandidates 转换为匹配器的候选项
func (r *MatchRequest) MatchCandidates() []textmatch.Candidate[string] {
	candidates := make([]textmatch.Candidate[string], 0, len(r.Candidates))
	for _, c := range r.Candidates {
		candidates = append(candidates, textmatch.Candidate[string]{Handle: c.ID, Text: c.Text})
	}
	return candidates
}

// MatchResponse 纯文本匹配结果
type MatchResponse struct {
	Target  string                          `json:"target"`
	Results []textmatch.MatchResult[string] `json:"results"`
	Stats   textmatch.Statistics            `json:"stats"`
}
