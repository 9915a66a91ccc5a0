package textmatch

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func drawCandidates(t *rapid.T) []Candidate[int] {
	texts := rapid.SliceOfN(rapid.StringMatching(`[abcAB \t]{0,12}`), 0, 10).Draw(t, "texts")
	out := make([]Candidate[int], 0, len(texts))
	for i, text := range texts {
		out = append(out, Candidate[int]{Handle: i, Text: text})
	}
	return out
}

func drawMatcher(t *rapid.T) *Matcher[int] {
	cfg := Config{
		FuzzyThreshold: rapid.Float64Range(0, 1).Draw(t, "threshold"),
		CaseSensitive:  rapid.Bool().Draw(t, "caseSensitive"),
	}
	m, err := New[int](cfg)
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}
	return m
}

func TestProperty_ResultInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := drawMatcher(t)
		target := rapid.StringMatching(`[abcAB ]{0,5}`).Draw(t, "target")
		cands := drawCandidates(t)

		results := m.MatchElements(target, cands)

		seen := make(map[int]bool)
		for i, r := range results {
			if r.Score < 0 || r.Score > 1 {
				t.Fatalf("score %v out of range", r.Score)
			}
			if seen[r.Handle] {
				t.Fatalf("handle %d appears twice", r.Handle)
			}
			seen[r.Handle] = true

			if Normalize(cands[r.Handle].Text, m.Config().CaseSensitive) == "" {
				t.Fatalf("empty candidate %d produced a result", r.Handle)
			}
			if r.Text != cands[r.Handle].Text {
				t.Fatalf("result text %q differs from candidate text %q", r.Text, cands[r.Handle].Text)
			}
			if r.Strategy == StrategyFuzzy && r.Score < m.Config().FuzzyThreshold {
				t.Fatalf("fuzzy score %v below threshold %v", r.Score, m.Config().FuzzyThreshold)
			}

			if i == 0 {
				continue
			}
			prev := results[i-1]
			if prev.Score < r.Score {
				t.Fatalf("results not sorted: %v before %v", prev.Score, r.Score)
			}
			if prev.Score == r.Score && prev.Handle > r.Handle {
				t.Fatalf("tie order not stable: %d before %d", prev.Handle, r.Handle)
			}
		}
	})
}

func TestProperty_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := drawMatcher(t)
		target := rapid.StringMatching(`[abcAB ]{0,5}`).Draw(t, "target")
		cands := drawCandidates(t)

		first := m.MatchElements(target, cands)
		second := m.MatchElements(target, cands)
		require.Equal(t, first, second)

		best, ok := m.BestMatch(target, cands)
		if len(first) == 0 {
			require.False(t, ok)
			return
		}
		require.True(t, ok)
		require.Equal(t, first[0], best)
	})
}

func TestProperty_StrategyScores(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := drawMatcher(t)
		target := rapid.StringMatching(`[ab]{1,4}`).Draw(t, "target")
		cands := drawCandidates(t)

		for _, r := range m.MatchElements(target, cands) {
			switch r.Strategy {
			case StrategyExact:
				require.Equal(t, 1.0, r.Score)
			case StrategyPrefix:
				require.Equal(t, 0.9, r.Score)
			case StrategyContains:
				require.GreaterOrEqual(t, r.Score, 0.5)
				require.LessOrEqual(t, r.Score, 0.8)
			case StrategyFuzzy:
				require.Less(t, r.Score, 1.0)
			default:
				t.Fatalf("unknown strategy %q", r.Strategy)
			}
		}
	})
}
