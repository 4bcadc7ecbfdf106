package models

// ZoneStatus 仓区状态（由风险聚合值派生，不允许直接设置）
type ZoneStatus string

const (
	ZoneSafe     ZoneStatus = "safe"
	ZoneWarning  ZoneStatus = "warning"
	ZoneCritical ZoneStatus = "critical"
)

// ZoneStatusForRisk 风险阈值派生规则：>80 critical，>50 warning，否则 safe
func ZoneStatusForRisk(risk float64) ZoneStatus {
	if risk > 80 {
		return ZoneCritical
	}
	if risk > 50 {
		return ZoneWarning
	}
	return ZoneSafe
}

// Zone 物理仓区（温湿度遥测 + 风险聚合）
type Zone struct {
	ID          string     `json:"id"`
	Temperature float64    `json:"temperature"`
	Humidity    float64    `json:"humidity"`
	Risk        float64    `json:"risk"` // 0-100
	BatchCount  int        `json:"batch_count"`
	Status      ZoneStatus `json:"status"`
}

// ZoneTelemetry 仓区遥测增量（来自传感器或模拟器，nil 字段表示不更新）
type ZoneTelemetry struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Risk        *float64 `json:"risk,omitempty"`
	BatchCount  *int     `json:"batch_count,omitempty"`
	RecordedAt  int64    `json:"recorded_at,omitempty"` // Unix 秒
}
