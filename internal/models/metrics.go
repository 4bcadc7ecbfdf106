package models

// SystemStatus 全局系统状态标签
type SystemStatus string

const (
	SystemOptimal        SystemStatus = "optimal"
	SystemActionRequired SystemStatus = "action_required"
	SystemCriticalAlert  SystemStatus = "critical_alert"
)

// Metrics 进程级聚合指标（每次状态变更后重算）
type Metrics struct {
	LossPrevented int64        `json:"loss_prevented"` // 累计避免损失
	AtRiskBatches int          `json:"at_risk_batches"`
	TotalBatches  int          `json:"total_batches"`
	Utilization   float64      `json:"utilization"` // 库容利用率 %
	AvgTemp       float64      `json:"avg_temp"`
	AvgHumidity   float64      `json:"avg_humidity"`
	Status        SystemStatus `json:"status"`
}
