package models

import (
	"time"
)

// BatchStatus 批次生命周期状态
type BatchStatus string

const (
	BatchInStorage  BatchStatus = "in_storage"
	BatchDispatched BatchStatus = "dispatched" // 终态
	BatchRestricted BatchStatus = "restricted"
	BatchSpoiled    BatchStatus = "spoiled" // 终态
)

// IsTerminal 判断是否为终态（终态批次不再参与风险评估）
func (s BatchStatus) IsTerminal() bool {
	return s == BatchDispatched || s == BatchSpoiled
}

// Batch 库存批次（一个仓区内的单一农产品存储单元）
type Batch struct {
	ID          string      `json:"id"`
	Product     string      `json:"product"`
	ZoneID      string      `json:"zone_id"`
	Quantity    float64     `json:"quantity"`
	Unit        string      `json:"unit"`
	HarvestDate time.Time   `json:"harvest_date"`
	StorageDate time.Time   `json:"storage_date"`
	ExpiryDate  time.Time   `json:"expiry_date"`
	Temperature float64     `json:"temperature"`
	Humidity    float64     `json:"humidity"`
	Status      BatchStatus `json:"status"`
	Risk        int         `json:"risk"` // 0-100
	RiskTier    RiskTier    `json:"risk_tier"`
	// LastAnalysis 最近一次 AI 分析结果；nil 表示尚未分析（调用方必须处理 pending 情况）
	LastAnalysis *Assessment    `json:"last_analysis,omitempty"`
	Explanation  string         `json:"explanation,omitempty"`
	Analyzing    bool           `json:"analyzing"`
	History      []HistoryEntry `json:"history"`
}

// Analyzed 是否已有分析结果
func (b *Batch) Analyzed() bool {
	return b.LastAnalysis != nil
}

// StorageDays 计算在库天数（最小为 1，与评估规则保持一致）
func (b *Batch) StorageDays(now time.Time) int {
	days := int(now.Sub(b.StorageDate).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// HistoryEntry 批次操作历史记录
type HistoryEntry struct {
	Time   time.Time `json:"time"`
	Action string    `json:"action"`
	Actor  string    `json:"actor"`
}
