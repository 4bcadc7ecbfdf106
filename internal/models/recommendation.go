package models

import (
	"time"
)

// RecommendationStatus 建议状态（approved/ignored 为终态，不允许再激活）
type RecommendationStatus string

const (
	RecommendationPending  RecommendationStatus = "pending"
	RecommendationApproved RecommendationStatus = "approved"
	RecommendationIgnored  RecommendationStatus = "ignored"
)

// IsTerminal 判断是否为终态
func (s RecommendationStatus) IsTerminal() bool {
	return s == RecommendationApproved || s == RecommendationIgnored
}

// Recommendation 系统生成的调度建议（需人工审批）
type Recommendation struct {
	ID            string               `json:"id"`
	Target        string               `json:"target"` // 人类可读目标描述，如 "Batch #AF-290 (Tomato)"
	BatchID       string               `json:"batch_id,omitempty"`
	ZoneID        string               `json:"zone_id,omitempty"`
	Reason        string               `json:"reason"`
	Action        string               `json:"action"`
	Priority      Priority             `json:"priority"`
	Confidence    int                  `json:"confidence"` // 0-100
	PredictedLoss int64                `json:"predicted_loss"`
	Risk          int                  `json:"risk"` // 关联风险分数，用于队列排序
	Status        RecommendationStatus `json:"status"`
	RaisedAt      time.Time            `json:"raised_at"`
	DecidedAt     *time.Time           `json:"decided_at,omitempty"`
}
