package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coldchain-advisor/internal/models"
)

func fixedJitter(v float64) func() float64 {
	return func() float64 { return v }
}

// ============================================
// 确定性规则测试
// ============================================

func TestEvaluate_Baseline(t *testing.T) {
	model := NewRiskModelWithJitter(fixedJitter(0))

	a := model.Evaluate(Snapshot{Product: "Potato", Temperature: 14, Humidity: 50, StorageDays: 5})

	assert.Equal(t, models.RiskLow, a.RiskTier)
	assert.Equal(t, 15, a.RemainingDays)
	assert.Equal(t, models.PriorityP3, a.Priority)
	assert.Equal(t, "Maintain Storage", a.RecommendedAction)
	assert.Equal(t, models.AssessmentSourceFallback, a.Source)
}

func TestEvaluate_MediumOnTemperature(t *testing.T) {
	model := NewRiskModelWithJitter(fixedJitter(0))

	a := model.Evaluate(Snapshot{Product: "Onion", Temperature: 17.5, Humidity: 50, StorageDays: 3})

	assert.Equal(t, models.RiskMedium, a.RiskTier)
	assert.Equal(t, 7, a.RemainingDays)
	assert.Equal(t, models.PriorityP2, a.Priority)
	assert.Equal(t, "Monitor Closely", a.RecommendedAction)
}

func TestEvaluate_MediumOnHumidity(t *testing.T) {
	model := NewRiskModelWithJitter(fixedJitter(0))

	a := model.Evaluate(Snapshot{Product: "Onion", Temperature: 12, Humidity: 71, StorageDays: 3})

	assert.Equal(t, models.RiskMedium, a.RiskTier)
	assert.Equal(t, models.PriorityP2, a.Priority)
}

func TestEvaluate_HighOverridesMedium(t *testing.T) {
	model := NewRiskModelWithJitter(fixedJitter(0))

	a := model.Evaluate(Snapshot{Product: "Grapes", Temperature: 25, Humidity: 50, StorageDays: 2})

	assert.Equal(t, models.RiskHigh, a.RiskTier)
	assert.Equal(t, 2, a.RemainingDays)
	assert.Equal(t, models.PriorityP1, a.Priority)
	assert.Equal(t, "Dispatch Immediately", a.RecommendedAction)
}

func TestEvaluate_TomatoOverrideFiresLast(t *testing.T) {
	model := NewRiskModelWithJitter(fixedJitter(0))

	// Tomato 16°C：无论湿度如何都触发特判
	for _, humidity := range []float64{20, 50, 90} {
		a := model.Evaluate(Snapshot{Product: "Tomato", Temperature: 16, Humidity: humidity, StorageDays: 4})

		assert.Equal(t, models.RiskHigh, a.RiskTier)
		assert.Equal(t, 3, a.RemainingDays)
		assert.Equal(t, models.PriorityP1, a.Priority)
		assert.Equal(t, "Dispatch to Local Market", a.RecommendedAction)
	}
}

func TestEvaluate_TomatoCaseInsensitive(t *testing.T) {
	model := NewRiskModelWithJitter(fixedJitter(0))

	for _, product := range []string{"tomato", "TOMATO", "Tomato"} {
		a := model.Evaluate(Snapshot{Product: product, Temperature: 22, Humidity: 40, StorageDays: 1})
		assert.Equal(t, "Dispatch to Local Market", a.RecommendedAction, "product=%s", product)
	}
}

func TestEvaluate_TomatoBelowThresholdStaysLow(t *testing.T) {
	model := NewRiskModelWithJitter(fixedJitter(0))

	a := model.Evaluate(Snapshot{Product: "Tomato", Temperature: 14.5, Humidity: 64, StorageDays: 2})

	assert.Equal(t, models.RiskLow, a.RiskTier)
	assert.Equal(t, models.PriorityP3, a.Priority)
}

func TestEvaluate_StorageDaysCoercedToMinimumOne(t *testing.T) {
	model := NewRiskModelWithJitter(fixedJitter(0))

	// 非法的 0 天和负天数不影响评估
	a := model.Evaluate(Snapshot{Product: "Potato", Temperature: 10, Humidity: 40, StorageDays: 0})
	assert.Equal(t, models.RiskLow, a.RiskTier)

	a = model.Evaluate(Snapshot{Product: "Potato", Temperature: 10, Humidity: 40, StorageDays: -3})
	assert.Equal(t, models.RiskLow, a.RiskTier)
}

func TestEvaluate_ConfidenceBand(t *testing.T) {
	// 抖动边界值都必须落在 [0.88, 0.98) 区间
	for _, jitter := range []float64{0, 0.5, 0.999999} {
		model := NewRiskModelWithJitter(fixedJitter(jitter))
		a := model.Evaluate(Snapshot{Product: "Onion", Temperature: 12, Humidity: 40, StorageDays: 1})

		require.GreaterOrEqual(t, a.Confidence, 0.88)
		require.Less(t, a.Confidence, 0.98)
	}
}

func TestEvaluate_OutputDomains(t *testing.T) {
	model := NewRiskModel()

	inputs := []Snapshot{
		{Product: "Tomato", Temperature: 30, Humidity: 90, StorageDays: 20},
		{Product: "Onion", Temperature: -5, Humidity: 0, StorageDays: 0},
		{Product: "", Temperature: 18, Humidity: 75, StorageDays: 1},
	}

	for _, in := range inputs {
		a := model.Evaluate(in)

		assert.Contains(t, []models.RiskTier{models.RiskLow, models.RiskMedium, models.RiskHigh}, a.RiskTier)
		assert.Contains(t, []models.Priority{models.PriorityP1, models.PriorityP2, models.PriorityP3}, a.Priority)
		assert.GreaterOrEqual(t, a.Confidence, 0.88)
		assert.Less(t, a.Confidence, 0.98)
	}
}

// ============================================
// 分数映射测试
// ============================================

func TestRiskScore_FixedMapping(t *testing.T) {
	assert.Equal(t, 85, models.RiskScore(models.RiskHigh))
	assert.Equal(t, 45, models.RiskScore(models.RiskMedium))
	assert.Equal(t, 15, models.RiskScore(models.RiskLow))
}
