package textmatch

// Statistics 匹配结果中各策略的数量
type Statistics struct {
	Exact    int `json:"exact"`
	Prefix   int `json:"prefix"`
	Contains int `json:"contains"`
	Fuzzy    int `json:"fuzzy"`
	Total    int `json:"total"`
}

// Stats 统计匹配结果的策略分布
func Stats[H any](results []MatchResult[H]) Statistics {
	var stats Statistics
	for _, r := range results {
		switch r.Strategy {
		case StrategyExact:
			stats.Exact++
		case StrategyPrefix:
			stats.Prefix++
		case StrategyContains:
			stats.Contains++
		case StrategyFuzzy:
			stats.Fuzzy++
		default:
			continue
		}
		stats.Total++
	}
	return stats
}
