package simulation

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"coldchain-advisor/internal/models"
	"coldchain-advisor/internal/state"
)

// 模拟事件注入的固定参数（与演练脚本保持一致）
const (
	criticalTemp     = 24.5
	criticalHumidity = 82.0
	criticalRisk     = 92.0
	criticalAction   = "Emergency Dispatch to Tier-1 Market"
)

// 受影响仓区及其对应的紧急调度建议
var criticalZones = []string{"A2", "C4", "D1"}

var criticalRecommendations = []struct {
	target        string
	predictedLoss int64
	zoneID        string
}{
	{"Grade A Grapes (Lot #AF-295)", 58000, "D1"},
	{"Export Tomatoes (Lot #AF-290)", 42000, "C4"},
	{"Spring Onions (Lot #AF-112)", 12500, "A2"},
}

// Driver 临界事件模拟器
// 注入传感器异常并生成紧急调度建议，用于演示和告警链路演练。
// 冷却窗口内的重复触发是无副作用的 no-op。
type Driver struct {
	mu          sync.Mutex
	zones       *state.ZoneMap
	batches     *state.BatchRegistry
	queue       *state.RecommendationQueue
	metrics     *state.MetricsState
	cooldown    time.Duration
	lastTrigger time.Time
	logger      *zap.Logger
	now         func() time.Time
}

// NewDriver 创建模拟器
func NewDriver(zones *state.ZoneMap, batches *state.BatchRegistry, queue *state.RecommendationQueue,
	metrics *state.MetricsState, cooldown time.Duration, logger *zap.Logger) *Driver {
	return &Driver{
		zones:    zones,
		batches:  batches,
		queue:    queue,
		metrics:  metrics,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock 替换时钟（测试用）
func (d *Driver) SetClock(now func() time.Time) {
	d.now = now
}

// TriggerCriticalEvent 注入临界事件
// 返回 triggered=false 表示仍在冷却窗口内，状态未被改动
func (d *Driver) TriggerCriticalEvent() (triggered bool, raised []models.Recommendation, err error) {
	d.mu.Lock()
	now := d.now()
	if !d.lastTrigger.IsZero() && now.Sub(d.lastTrigger) < d.cooldown {
		d.mu.Unlock()
		d.logger.Info("Critical event suppressed by cooldown",
			zap.Time("last_trigger", d.lastTrigger),
			zap.Duration("cooldown", d.cooldown),
		)
		return false, nil, nil
	}
	d.lastTrigger = now
	d.mu.Unlock()

	// 1. 受影响仓区的遥测强制拉高，状态派生为 critical
	temp := criticalTemp
	hum := criticalHumidity
	risk := criticalRisk
	for _, zoneID := range criticalZones {
		if _, err := d.zones.UpdateZone(zoneID, models.ZoneTelemetry{
			Temperature: &temp,
			Humidity:    &hum,
			Risk:        &risk,
		}); err != nil {
			return true, raised, fmt.Errorf("failed to update zone %s: %w", zoneID, err)
		}
		d.batches.ApplyZoneTelemetry(zoneID, criticalTemp, criticalHumidity)
	}

	// 2. 生成三条紧急 P1 建议
	for _, c := range criticalRecommendations {
		rec, err := d.queue.Raise(models.Recommendation{
			Target:        c.target,
			ZoneID:        c.zoneID,
			Reason:        fmt.Sprintf("CRITICAL: Sensor in Zone %s reading 24°C+. Spoilage imminent within 4 hours.", c.zoneID),
			Action:        criticalAction,
			Priority:      models.PriorityP1,
			Confidence:    99,
			PredictedLoss: c.predictedLoss,
			Risk:          int(criticalRisk),
		})
		if err != nil {
			return true, raised, fmt.Errorf("failed to raise critical recommendation: %w", err)
		}
		raised = append(raised, rec)
	}

	// 3. 指标进入强制 critical 状态
	d.metrics.AddAtRisk(len(criticalZones))
	d.metrics.SetCriticalOverride()

	d.logger.Warn("Critical event injected",
		zap.Strings("zones", criticalZones),
		zap.Int("recommendations", len(raised)),
	)

	return true, raised, nil
}

// Reset 解除临界状态（冷却计时不重置）
func (d *Driver) Reset() {
	d.metrics.ClearCriticalOverride()
	d.logger.Info("Critical override cleared")
}
