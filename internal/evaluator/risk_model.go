package evaluator

import (
	"math/rand"
	"strings"

	"coldchain-advisor/internal/models"
)

// Snapshot 单个批次的评估输入
type Snapshot struct {
	Product     string  `json:"produce"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	StorageDays int     `json:"storage_days"`
}

// RiskModel 确定性风险评估规则（外部评分服务不可达时的回退策略）
// 规则固定，置信度抖动通过可注入的随机源隔离，便于测试复现
type RiskModel struct {
	jitter func() float64 // 返回 [0,1) 区间的随机值
}

// NewRiskModel 创建风险评估模型
func NewRiskModel() *RiskModel {
	return &RiskModel{jitter: rand.Float64}
}

// NewRiskModelWithJitter 创建带指定抖动源的模型（测试用）
func NewRiskModelWithJitter(jitter func() float64) *RiskModel {
	return &RiskModel{jitter: jitter}
}

// Evaluate 评估批次遥测，返回风险等级、剩余天数、优先级和建议动作
// 规则顺序固定：基线 → 温湿度超限 → 高温覆盖 → Tomato 特判（最后评估，覆盖之前所有结果）
func (m *RiskModel) Evaluate(in Snapshot) models.Assessment {
	days := in.StorageDays
	if days < 1 {
		days = 1
	}

	a := models.Assessment{
		RiskTier:          models.RiskLow,
		RemainingDays:     15,
		Priority:          models.PriorityP3,
		RecommendedAction: "Maintain Storage",
		Source:            models.AssessmentSourceFallback,
	}

	if in.Temperature > 17 || in.Humidity > 70 {
		a.RiskTier = models.RiskMedium
		a.RemainingDays = 7
		a.Priority = models.PriorityP2
		a.RecommendedAction = "Monitor Closely"
	}

	if in.Temperature > 20 {
		a.RiskTier = models.RiskHigh
		a.RemainingDays = 2
		a.Priority = models.PriorityP1
		a.RecommendedAction = "Dispatch Immediately"
	}

	// Tomato 特判：最后评估，覆盖之前的所有结果
	if strings.EqualFold(in.Product, "tomato") && in.Temperature > 15 {
		a.RiskTier = models.RiskHigh
		a.RemainingDays = 3
		a.Priority = models.PriorityP1
		a.RecommendedAction = "Dispatch to Local Market"
	}

	// 置信度保持在 [0.88, 0.98) 区间
	a.Confidence = 0.88 + m.jitter()*0.10
	if a.Confidence >= 0.98 {
		a.Confidence = 0.9799
	}

	return a
}
