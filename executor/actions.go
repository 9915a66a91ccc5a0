package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/browserwing/locator/pkg/logger"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// 滚动后等待页面稳定，避免滚动期间元素位置变化
const scrollSettleDelay = 300 * time.Millisecond

// 先触发完整的鼠标事件序列，再调用原生 click，兼容被遮挡的元素
const jsClick = `() => {
	try {
		this.focus();
	} catch (e) {}
	['mousedown', 'mouseup'].forEach(type => {
		this.dispatchEvent(new MouseEvent(type, { bubbles: true, cancelable: true, view: window }));
	});
	if (typeof this.click === 'function') {
		this.click();
	} else {
		this.dispatchEvent(new MouseEvent('click', { bubbles: true, cancelable: true, view: window }));
	}
}`

// RodInvoker 对 rod 元素执行点击和输入
type RodInvoker struct {
	timeout time.Duration
}

// NewRodInvoker 创建 rod 操作执行器
func NewRodInvoker(timeout time.Duration) *RodInvoker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RodInvoker{timeout: timeout}
}

// Click 点击元素，JS 点击失败时回退到鼠标点击
func (r *RodInvoker) Click(ctx context.Context, elem *rod.Element) error {
	elem = elem.Context(ctx).Timeout(r.timeout)

	if err := elem.ScrollIntoView(); err != nil {
		return fmt.Errorf("failed to scroll to element: %w", err)
	}
	time.Sleep(scrollSettleDelay)

	if _, err := elem.Eval(jsClick); err != nil {
		logger.Warn(ctx, "JS click failed, trying mouse click: %v", err)
		if err := elem.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("both JS and mouse click failed: %w", err)
		}
	}
	return nil
}

// Input 聚焦元素并输入文本，clear 为 true 时先清空原有内容
func (r *RodInvoker) Input(ctx context.Context, elem *rod.Element, text string, clear bool) error {
	elem = elem.Context(ctx).Timeout(r.timeout)

	if err := elem.Focus(); err != nil {
		return fmt.Errorf("failed to focus element: %w", err)
	}

	if clear {
		if err := elem.SelectAllText(); err == nil {
			if err := elem.Page().Keyboard.Press(input.Backspace); err != nil {
				return fmt.Errorf("failed to clear element: %w", err)
			}
		}
	}

	if err := elem.Input(text); err != nil {
		return fmt.Errorf("failed to input text: %w", err)
	}
	return nil
}
