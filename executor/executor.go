package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/browserwing/locator/config"
	"github.com/browserwing/locator/pkg/textmatch"
	"github.com/go-rod/rod"
)

// TextLocator 按文本在当前页面上查找、点击和输入
type TextLocator interface {
	FindByText(ctx context.Context, target string, mode ElementMode) ([]MatchOption, error)
	ClickByText(ctx context.Context, target string, index int) (*OperationResult, error)
	InputByText(ctx context.Context, target, value string, index int, clear bool) (*OperationResult, error)
	ListElements(ctx context.Context, mode ElementMode) (*ElementList, error)
}

// Executor 基于 rod 的按文本定位能力
//
// 可点击元素和输入框使用各自的候选集合，共享同一个匹配器配置。
type Executor struct {
	clickLocator  *Locator[*rod.Element]
	inputLocator  *Locator[*rod.Element]
	maxTextLength int
}

// ExecutorOptions 创建 Executor 的选项
type ExecutorOptions struct {
	Source   string // config.CandidateSourceDOM 或 config.CandidateSourceAccessibility
	Matcher  textmatch.Config
	Supplier SupplierOptions
	Locator  LocatorOptions
}

// NewExecutor 创建 Executor 实例
func NewExecutor(pages PageProvider, opts *ExecutorOptions) (*Executor, error) {
	if opts == nil {
		opts = &ExecutorOptions{Matcher: textmatch.DefaultConfig()}
	}

	matcher, err := textmatch.New[*rod.Element](opts.Matcher)
	if err != nil {
		return nil, err
	}

	invoker := NewRodInvoker(opts.Supplier.Timeout)
	newLocator := func(mode ElementMode) (*Locator[*rod.Element], error) {
		var supplier CandidateSupplier[*rod.Element]
		switch opts.Source {
		case "", config.CandidateSourceDOM:
			supplier = NewDOMSupplier(pages, mode, &opts.Supplier)
		case config.CandidateSourceAccessibility:
			supplier = NewSemanticSupplier(pages, mode, &opts.Supplier)
		default:
			return nil, fmt.Errorf("unknown candidate source: %s", opts.Source)
		}
		locatorOpts := opts.Locator
		return NewLocator[*rod.Element](matcher, supplier, invoker, &locatorOpts), nil
	}

	clickLocator, err := newLocator(ElementModeClickable)
	if err != nil {
		return nil, err
	}
	inputLocator, err := newLocator(ElementModeInput)
	if err != nil {
		return nil, err
	}

	return &Executor{
		clickLocator:  clickLocator,
		inputLocator:  inputLocator,
		maxTextLength: opts.Supplier.withDefaults().MaxTextLength,
	}, nil
}

// NewExecutorFromConfig 按配置文件创建 Executor
func NewExecutorFromConfig(pages PageProvider, cfg *config.Config, history HistoryRecorder) (*Executor, error) {
	return NewExecutor(pages, &ExecutorOptions{
		Source:  cfg.Browser.CandidateSource,
		Matcher: cfg.Matcher.TextMatch(),
		Supplier: SupplierOptions{
			Timeout:       time.Duration(cfg.Browser.TimeoutSeconds) * time.Second,
			MaxTextLength: cfg.Browser.MaxTextLength,
		},
		Locator: LocatorOptions{
			History:      history,
			AutoActScore: cfg.Matcher.AutoActScore,
		},
	})
}

// Locator 返回指定种类元素的定位器
func (e *Executor) Locator(mode ElementMode) *Locator[*rod.Element] {
	if mode == ElementModeInput {
		return e.inputLocator
	}
	return e.clickLocator
}

// FindByText 查找匹配的元素，只返回可序列化的结果摘要
func (e *Executor) FindByText(ctx context.Context, target string, mode ElementMode) ([]MatchOption, error) {
	results, err := e.Locator(mode).Find(ctx, target)
	if err != nil {
		return nil, err
	}
	return matchOptions(results), nil
}

// ClickByText 按文本点击元素
func (e *Executor) ClickByText(ctx context.Context, target string, index int) (*OperationResult, error) {
	return e.clickLocator.ClickByText(ctx, target, index)
}

// InputByText 按文本定位输入框并输入
func (e *Executor) InputByText(ctx context.Context, target, value string, index int, clear bool) (*OperationResult, error) {
	return e.inputLocator.InputByText(ctx, target, value, index, clear)
}

// ListElements 列出当前页面上可点击或可输入的元素，文本按 max_text_length 截断
func (e *Executor) ListElements(ctx context.Context, mode ElementMode) (*ElementList, error) {
	return e.Locator(mode).List(ctx, mode, e.maxTextLength)
}

func matchOptions[H any](results []textmatch.MatchResult[H]) []MatchOption {
	options := make([]MatchOption, 0, len(results))
	for i, r := range results {
		options = append(options, MatchOption{
			Index:    i,
			Text:     r.Text,
			Strategy: r.Strategy,
			Score:    r.Score,
			Reason:   r.Reason,
		})
	}
	return options
}
