package models

import (
	"time"
)

// AdvisoryEvent 调度建议审计记录（建议的生成与决策落库，用于离线追溯）
type AdvisoryEvent struct {
	EventID       string     `json:"event_id"`
	RecID         string     `json:"rec_id"`
	BatchID       *string    `json:"batch_id,omitempty"`
	ZoneID        *string    `json:"zone_id,omitempty"`
	Target        string     `json:"target"`
	Reason        string     `json:"reason"`
	Action        string     `json:"action"`
	Priority      string     `json:"priority"`
	Confidence    int        `json:"confidence"`
	PredictedLoss int64      `json:"predicted_loss"`
	Risk          int        `json:"risk"`
	Status        string     `json:"status"`
	RaisedAt      time.Time  `json:"raised_at"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
