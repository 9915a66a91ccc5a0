package models

import (
	"encoding/json"
	"time"
)

// LocateAction 按文本定位时执行的操作类型
type LocateAction string

const (
	LocateActionFind  LocateAction = "find"  // 只查找，不操作
	LocateActionClick LocateAction = "click" // 查找后点击
	LocateActionInput LocateAction = "input" // 查找后输入
)

// LocateRecord 一次按文本定位的记录
type LocateRecord struct {
	ID             string       `json:"id"`
	Action         LocateAction `json:"action"`
	Target         string       `json:"target"`                 // 用户给出的目标文本
	PageURL        string       `json:"page_url,omitempty"`     // 定位时的页面地址
	MatchedText    string       `json:"matched_text,omitempty"` // 最终选中元素的原始文本
	Strategy       string       `json:"strategy,omitempty"`     // exact, prefix, contains, fuzzy
	Score          float64      `json:"score"`
	Index          int          `json:"index"`           // 选中结果在排序列表中的位置，未选中为 -1
	CandidateCount int          `json:"candidate_count"` // 参与匹配的候选元素数
	ResultCount    int          `json:"result_count"`    // 命中的结果数
	Success        bool         `json:"success"`
	Error          string       `json:"error,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// ToJSON 序列化
func (r *LocateRecord) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON 反序列化
func (r *LocateRecord) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}

// LocateStats 定位记录统计
type LocateStats struct {
	Total      int            `json:"total"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	ByAction   map[string]int `json:"by_action"`
	ByStrategy map[string]int `json:"by_strategy"`
}
