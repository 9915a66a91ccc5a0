package executor

import (
	"context"
	"time"

	"github.com/browserwing/locator/models"
	"github.com/browserwing/locator/pkg/textmatch"
	"github.com/go-rod/rod"
)

// CandidateSupplier 提供当前页面上的候选元素（句柄 + 可见文本）
type CandidateSupplier[H any] interface {
	Candidates(ctx context.Context) ([]textmatch.Candidate[H], error)
}

// ActionInvoker 对选中的句柄执行实际的 UI 操作
type ActionInvoker[H any] interface {
	Click(ctx context.Context, handle H) error
	Input(ctx context.Context, handle H, text string, clear bool) error
}

// PageURLer 可选接口，提供候选元素所在页面的地址，用于记录
type PageURLer interface {
	PageURL(ctx context.Context) string
}

// HistoryRecorder 保存定位记录
type HistoryRecorder interface {
	SaveLocateRecord(record *models.LocateRecord) error
}

// PageProvider 提供当前活动页面
type PageProvider interface {
	ActivePage(ctx context.Context) (*rod.Page, error)
}

// ElementMode 候选元素的种类
type ElementMode string

const (
	ElementModeClickable ElementMode = "clickable"
	ElementModeInput     ElementMode = "input"
)

// OperationResult 操作结果
type OperationResult struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// ElementInfo 列出页面元素时的一项
type ElementInfo struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// ElementList 当前页面上某一种类的全部候选元素
type ElementList struct {
	Mode     ElementMode   `json:"mode"`
	PageURL  string        `json:"page_url"`
	Total    int           `json:"total"`
	Elements []ElementInfo `json:"elements"`
}

// LocatorOptions 定位器选项
type LocatorOptions struct {
	History      HistoryRecorder // 为空时不记录
	AutoActScore float64         // 多个结果时，最高分不低于该值且唯一才自动操作，默认 0.9
}

// SupplierOptions 浏览器候选元素采集选项
type SupplierOptions struct {
	Timeout       time.Duration // 单次采集超时，默认 10 秒
	MaxTextLength int           // 列出元素时文本的截断长度（字符），默认 100；匹配始终使用完整文本
}

func (o *SupplierOptions) withDefaults() SupplierOptions {
	out := SupplierOptions{Timeout: 10 * time.Second, MaxTextLength: 100}
	if o == nil {
		return out
	}
	if o.Timeout > 0 {
		out.Timeout = o.Timeout
	}
	if o.MaxTextLength > 0 {
		out.MaxTextLength = o.MaxTextLength
	}
	return out
}
