package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/browserwing/locator/pkg/logger"
	"github.com/browserwing/locator/pkg/textmatch"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// 常见的可点击元素
var clickableSelectors = []string{
	"a",
	"button",
	`input[type="button"]`,
	`input[type="submit"]`,
	`input[type="reset"]`,
	"[onclick]",
	`[role="button"]`,
}

// 常见的可输入元素
var inputSelectors = []string{
	`input[type="text"]`,
	`input[type="password"]`,
	`input[type="email"]`,
	`input[type="search"]`,
	`input[type="url"]`,
	`input[type="tel"]`,
	`input[type="number"]`,
	"textarea",
	"input:not([type])",
	`[contenteditable="true"]`,
}

// 元素本身没有可见文本时依次尝试的属性
var textFallbackAttributes = []string{"value", "aria-label", "placeholder", "title", "alt"}

// DOMSupplier 通过 CSS 选择器从当前页面采集候选元素
type DOMSupplier struct {
	pages     PageProvider
	selectors []string
	opts      SupplierOptions
}

// NewDOMSupplier 创建基于 DOM 查询的候选元素采集器
func NewDOMSupplier(pages PageProvider, mode ElementMode, opts *SupplierOptions) *DOMSupplier {
	selectors := clickableSelectors
	if mode == ElementModeInput {
		selectors = inputSelectors
	}
	return &DOMSupplier{
		pages:     pages,
		selectors: selectors,
		opts:      opts.withDefaults(),
	}
}

// Candidates 采集可见的候选元素，同一元素被多个选择器命中时只保留第一次
func (s *DOMSupplier) Candidates(ctx context.Context) ([]textmatch.Candidate[*rod.Element], error) {
	page, err := s.pages.ActivePage(ctx)
	if err != nil {
		return nil, err
	}
	page = page.Context(ctx).Timeout(s.opts.Timeout)

	seen := make(map[proto.DOMBackendNodeID]bool)
	candidates := make([]textmatch.Candidate[*rod.Element], 0)

	for _, selector := range s.selectors {
		elements, err := page.Elements(selector)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", selector, err)
		}

		for _, elem := range elements {
			visible, err := elem.Visible()
			if err != nil || !visible {
				continue
			}

			node, err := elem.Describe(0, false)
			if err != nil {
				logger.Debug(ctx, "Failed to describe element for %s: %v", selector, err)
				continue
			}
			if seen[node.BackendNodeID] {
				continue
			}
			seen[node.BackendNodeID] = true

			candidates = append(candidates, textmatch.Candidate[*rod.Element]{
				Handle: elem,
				Text:   elementText(elem),
			})
		}
	}

	logger.Debug(ctx, "Collected %d DOM candidates", len(candidates))
	return candidates, nil
}

// PageURL 当前页面地址
func (s *DOMSupplier) PageURL(ctx context.Context) string {
	return activePageURL(ctx, s.pages)
}

// elementText 元素的可见文本，没有时回退到常用属性
func elementText(elem *rod.Element) string {
	if text, err := elem.Text(); err == nil && strings.TrimSpace(text) != "" {
		return text
	}
	for _, name := range textFallbackAttributes {
		value, err := elem.Attribute(name)
		if err == nil && value != nil && strings.TrimSpace(*value) != "" {
			return *value
		}
	}
	return ""
}

func activePageURL(ctx context.Context, pages PageProvider) string {
	page, err := pages.ActivePage(ctx)
	if err != nil {
		return ""
	}
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}
