package models

// RiskTier 腐败风险等级
type RiskTier string

const (
	RiskLow    RiskTier = "Low"
	RiskMedium RiskTier = "Medium"
	RiskHigh   RiskTier = "High"
)

// Priority 调度优先级（P1 最高）
type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// 评估结果来源
const (
	AssessmentSourceModel    = "model"    // 外部评分服务
	AssessmentSourceFallback = "fallback" // 本地确定性规则
)

// Assessment 批次风险评估结果
type Assessment struct {
	RiskTier          RiskTier `json:"spoilage_risk"`
	RemainingDays     int      `json:"remaining_days"`
	Priority          Priority `json:"priority"`
	RecommendedAction string   `json:"recommended_action"`
	Confidence        float64  `json:"confidence"` // [0,1]
	Source            string   `json:"source"`
}

// Score 风险等级到数值分数的固定映射（用于排序和着色）
func (a Assessment) Score() int {
	return RiskScore(a.RiskTier)
}

// RiskScore 固定映射：High → 85，Medium → 45，Low → 15
func RiskScore(tier RiskTier) int {
	switch tier {
	case RiskHigh:
		return 85
	case RiskMedium:
		return 45
	default:
		return 15
	}
}
