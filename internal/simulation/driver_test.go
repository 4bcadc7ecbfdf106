package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coldchain-advisor/internal/evaluator"
	"coldchain-advisor/internal/models"
	"coldchain-advisor/internal/state"
)

func newTestDriver(t *testing.T, cooldown time.Duration) (*Driver, *state.ZoneMap, *state.BatchRegistry, *state.RecommendationQueue, *state.MetricsState) {
	t.Helper()
	logger := zap.NewNop()

	model := evaluator.NewRiskModelWithJitter(func() float64 { return 0 })
	batches := state.NewBatchRegistry(model, nil, logger)
	zones := state.NewZoneMap(logger)
	metrics := state.NewMetricsState(logger)
	queue := state.NewRecommendationQueue(metrics, logger)

	return NewDriver(zones, batches, queue, metrics, cooldown, logger), zones, batches, queue, metrics
}

func TestTriggerCriticalEvent_FullEffect(t *testing.T) {
	d, zones, batches, queue, metrics := newTestDriver(t, 30*time.Second)

	// C4 有一个在库批次，事件级联应拉高它的风险
	seeded, err := batches.AddBatch(state.AddBatchInput{
		Product: "Tomato", ZoneID: "C4", Quantity: 450, Temperature: 14, Humidity: 50,
	})
	require.NoError(t, err)
	require.Equal(t, models.RiskLow, seeded.RiskTier)

	triggered, raised, err := d.TriggerCriticalEvent()
	require.NoError(t, err)
	require.True(t, triggered)

	// 三个仓区进入 critical
	for _, zoneID := range []string{"A2", "C4", "D1"} {
		z, err := zones.Get(zoneID)
		require.NoError(t, err)
		assert.Equal(t, models.ZoneCritical, z.Status, "zone %s", zoneID)
		assert.InDelta(t, 24.5, z.Temperature, 1e-9)
		assert.InDelta(t, 82.0, z.Humidity, 1e-9)
		assert.InDelta(t, 92.0, z.Risk, 1e-9)
	}

	// 三条固定的 P1 紧急建议
	require.Len(t, raised, 3)
	targets := make(map[string]models.Recommendation)
	for _, rec := range raised {
		targets[rec.Target] = rec
		assert.Equal(t, models.PriorityP1, rec.Priority)
		assert.Equal(t, 99, rec.Confidence)
		assert.Equal(t, "Emergency Dispatch to Tier-1 Market", rec.Action)
		assert.Contains(t, rec.Reason, "Spoilage imminent within 4 hours")
	}
	assert.Equal(t, int64(58000), targets["Grade A Grapes (Lot #AF-295)"].PredictedLoss)
	assert.Equal(t, int64(42000), targets["Export Tomatoes (Lot #AF-290)"].PredictedLoss)
	assert.Equal(t, int64(12500), targets["Spring Onions (Lot #AF-112)"].PredictedLoss)
	assert.Len(t, queue.ActiveQueue(0), 3)

	// 指标进入强制 critical，at-risk 增加 3
	m := metrics.Snapshot()
	assert.Equal(t, models.SystemCriticalAlert, m.Status)
	assert.Equal(t, 6, m.AtRiskBatches)

	// 仓区内批次被级联拉高
	got, err := batches.Get(seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RiskHigh, got.RiskTier)
	assert.InDelta(t, 24.5, got.Temperature, 1e-9)
}

func TestTriggerCriticalEvent_CooldownSuppressesSecondTrigger(t *testing.T) {
	d, _, _, queue, metrics := newTestDriver(t, 30*time.Second)

	current := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	d.SetClock(func() time.Time { return current })

	triggered, _, err := d.TriggerCriticalEvent()
	require.NoError(t, err)
	require.True(t, triggered)
	require.Len(t, queue.ActiveQueue(0), 3)
	atRiskAfterFirst := metrics.Snapshot().AtRiskBatches

	// 冷却窗口内：no-op
	current = current.Add(10 * time.Second)
	triggered, raised, err := d.TriggerCriticalEvent()
	require.NoError(t, err)
	assert.False(t, triggered)
	assert.Empty(t, raised)
	assert.Len(t, queue.ActiveQueue(0), 3, "no duplicate recommendations inside cooldown")
	assert.Equal(t, atRiskAfterFirst, metrics.Snapshot().AtRiskBatches)

	// 冷却结束后可再次触发
	current = current.Add(25 * time.Second)
	triggered, raised, err = d.TriggerCriticalEvent()
	require.NoError(t, err)
	assert.True(t, triggered)
	assert.Len(t, raised, 3)
}

func TestReset_ClearsOverride(t *testing.T) {
	d, _, _, _, metrics := newTestDriver(t, time.Second)

	triggered, _, err := d.TriggerCriticalEvent()
	require.NoError(t, err)
	require.True(t, triggered)
	require.Equal(t, models.SystemCriticalAlert, metrics.Snapshot().Status)

	d.Reset()
	assert.Equal(t, models.SystemOptimal, metrics.Snapshot().Status)
}
