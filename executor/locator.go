package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/browserwing/locator/models"
	"github.com/browserwing/locator/pkg/logger"
	"github.com/browserwing/locator/pkg/textmatch"
)

const defaultAutoActScore = 0.9

// Locator 按文本定位元素并执行操作
//
// 候选元素的采集和实际操作都交给外部实现，Locator 只负责排序和选择。
type Locator[H any] struct {
	matcher      *textmatch.Matcher[H]
	supplier     CandidateSupplier[H]
	invoker      ActionInvoker[H]
	history      HistoryRecorder
	autoActScore float64
}

// NewLocator 创建定位器
func NewLocator[H any](matcher *textmatch.Matcher[H], supplier CandidateSupplier[H], invoker ActionInvoker[H], opts *LocatorOptions) *Locator[H] {
	l := &Locator[H]{
		matcher:      matcher,
		supplier:     supplier,
		invoker:      invoker,
		autoActScore: defaultAutoActScore,
	}
	if opts != nil {
		l.history = opts.History
		if opts.AutoActScore > 0 {
			l.autoActScore = opts.AutoActScore
		}
	}
	return l
}

// Matcher 返回使用的匹配器
func (l *Locator[H]) Matcher() *textmatch.Matcher[H] {
	return l.matcher
}

type ranking[H any] struct {
	results        []textmatch.MatchResult[H]
	candidateCount int
	pageURL        string
}

func (l *Locator[H]) rank(ctx context.Context, target string) (*ranking[H], error) {
	candidates, err := l.supplier.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect candidates: %w", err)
	}

	r := &ranking[H]{
		results:        l.matcher.MatchElements(target, candidates),
		candidateCount: len(candidates),
	}
	if u, ok := l.supplier.(PageURLer); ok {
		r.pageURL = u.PageURL(ctx)
	}

	stats := textmatch.Stats(r.results)
	logger.Debug(ctx, "target '%s': %d candidates, %d results (exact=%d prefix=%d contains=%d fuzzy=%d)",
		target, r.candidateCount, stats.Total, stats.Exact, stats.Prefix, stats.Contains, stats.Fuzzy)
	return r, nil
}

// Find 返回按置信度排序的匹配结果
func (l *Locator[H]) Find(ctx context.Context, target string) ([]textmatch.MatchResult[H], error) {
	r, err := l.rank(ctx, target)
	record := &models.LocateRecord{
		Action: models.LocateActionFind,
		Target: target,
		Index:  -1,
	}
	if err != nil {
		l.record(ctx, record, nil, err)
		return nil, err
	}

	record.PageURL = r.pageURL
	record.CandidateCount = r.candidateCount
	record.ResultCount = len(r.results)
	if len(r.results) == 0 {
		// 没有结果不是错误，但记录为未命中
		l.record(ctx, record, nil, fmt.Errorf("%w: '%s'", ErrNoMatch, target))
		return r.results, nil
	}
	record.Index = 0
	l.record(ctx, record, &r.results[0], nil)
	return r.results, nil
}

// List 列出当前的全部候选元素，index 与采集顺序一致，maxTextLength > 0 时截断展示文本
func (l *Locator[H]) List(ctx context.Context, mode ElementMode, maxTextLength int) (*ElementList, error) {
	candidates, err := l.supplier.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect candidates: %w", err)
	}

	list := &ElementList{
		Mode:     mode,
		Total:    len(candidates),
		Elements: make([]ElementInfo, 0, len(candidates)),
	}
	if u, ok := l.supplier.(PageURLer); ok {
		list.PageURL = u.PageURL(ctx)
	}
	for i, c := range candidates {
		text := c.Text
		if maxTextLength > 0 {
			text = truncateRunes(text, maxTextLength)
		}
		list.Elements = append(list.Elements, ElementInfo{Index: i, Text: text})
	}
	return list, nil
}

// Resolve 按选择策略挑选一个结果
//
// index >= 0 时直接使用指定结果；只有一个结果时直接使用；
// 否则最高分不低于 autoActScore 且严格高于第二名时使用最高分，其余情况返回 *AmbiguousError。
func (l *Locator[H]) Resolve(ctx context.Context, target string, index int) (textmatch.MatchResult[H], error) {
	r, err := l.rank(ctx, target)
	if err != nil {
		var zero textmatch.MatchResult[H]
		return zero, err
	}
	result, _, err := l.choose(target, r.results, index)
	return result, err
}

func (l *Locator[H]) choose(target string, results []textmatch.MatchResult[H], index int) (textmatch.MatchResult[H], int, error) {
	var zero textmatch.MatchResult[H]

	if len(results) == 0 {
		return zero, -1, fmt.Errorf("%w: '%s'", ErrNoMatch, target)
	}
	if index >= 0 {
		if index >= len(results) {
			return zero, -1, fmt.Errorf("%w: index %d, %d results", ErrIndexOutOfRange, index, len(results))
		}
		return results[index], index, nil
	}
	if len(results) == 1 {
		return results[0], 0, nil
	}
	if results[0].Score >= l.autoActScore && results[0].Score > results[1].Score {
		return results[0], 0, nil
	}
	return zero, -1, newAmbiguousError(target, results)
}

// ClickByText 按文本定位并点击元素，index < 0 表示自动选择
func (l *Locator[H]) ClickByText(ctx context.Context, target string, index int) (*OperationResult, error) {
	return l.act(ctx, models.LocateActionClick, target, index, func(handle H) error {
		return l.invoker.Click(ctx, handle)
	})
}

// InputByText 按文本定位输入框并输入内容，index < 0 表示自动选择
func (l *Locator[H]) InputByText(ctx context.Context, target, value string, index int, clear bool) (*OperationResult, error) {
	return l.act(ctx, models.LocateActionInput, target, index, func(handle H) error {
		return l.invoker.Input(ctx, handle, value, clear)
	})
}

func (l *Locator[H]) act(ctx context.Context, action models.LocateAction, target string, index int, do func(H) error) (*OperationResult, error) {
	record := &models.LocateRecord{
		Action: action,
		Target: target,
		Index:  -1,
	}

	r, err := l.rank(ctx, target)
	if err != nil {
		l.record(ctx, record, nil, err)
		return failedResult(err), err
	}
	record.PageURL = r.pageURL
	record.CandidateCount = r.candidateCount
	record.ResultCount = len(r.results)

	chosen, chosenIndex, err := l.choose(target, r.results, index)
	if err != nil {
		l.record(ctx, record, nil, err)
		result := failedResult(err)
		var ambiguous *AmbiguousError
		if errors.As(err, &ambiguous) {
			result.Data = map[string]interface{}{"options": ambiguous.Options}
		}
		return result, err
	}
	record.Index = chosenIndex

	logger.Info(ctx, "%s '%s' -> '%s' (%s, %.2f)", action, target, chosen.Text, chosen.Strategy, chosen.Score)
	if err := do(chosen.Handle); err != nil {
		err = fmt.Errorf("failed to %s element '%s': %w", action, chosen.Text, err)
		l.record(ctx, record, &chosen, err)
		return failedResult(err), err
	}
	l.record(ctx, record, &chosen, nil)

	return &OperationResult{
		Success:   true,
		Message:   fmt.Sprintf("Successfully performed %s on element: %s", action, chosen.Text),
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"matched_text": chosen.Text,
			"strategy":     chosen.Strategy,
			"score":        chosen.Score,
			"reason":       chosen.Reason,
			"index":        chosenIndex,
		},
	}, nil
}

func (l *Locator[H]) record(ctx context.Context, record *models.LocateRecord, chosen *textmatch.MatchResult[H], err error) {
	if l.history == nil {
		return
	}
	if chosen != nil {
		record.MatchedText = chosen.Text
		record.Strategy = string(chosen.Strategy)
		record.Score = chosen.Score
	}
	record.Success = err == nil
	if err != nil {
		record.Error = err.Error()
	}
	if saveErr := l.history.SaveLocateRecord(record); saveErr != nil {
		logger.Warn(ctx, "Failed to save locate record: %v", saveErr)
	}
}

func failedResult(err error) *OperationResult {
	return &OperationResult{
		Success:   false,
		Error:     err.Error(),
		Timestamp: time.Now(),
	}
}
