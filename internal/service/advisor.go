package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coldchain-advisor/internal/config"
	"coldchain-advisor/internal/consumer"
	"coldchain-advisor/internal/models"
	"coldchain-advisor/internal/repository"
	"coldchain-advisor/internal/simulation"
	"coldchain-advisor/internal/state"
)

// 每公斤估值（卢比），用于高风险建议的预期损失估算
var lossRatePerKg = map[string]int64{
	"Tomato": 100,
	"Grapes": 300,
}

const defaultLossRatePerKg int64 = 80

// 仓区风险超过该阈值时生成仓区级建议
const zoneAlertThreshold = 80.0

// Advisor 调度顾问核心
// 持有全部内存状态容器并编排跨容器操作；cache 和 auditRepo 可为 nil
// （测试和无外部依赖的部署场景），为 nil 时对应副作用直接跳过
type Advisor struct {
	config  *config.Config
	batches *state.BatchRegistry
	zones   *state.ZoneMap
	queue   *state.RecommendationQueue
	metrics *state.MetricsState
	driver  *simulation.Driver

	cache     *consumer.CacheManager
	auditRepo *repository.AdvisoryEventsRepository
	logger    *zap.Logger
}

// NewAdvisor 创建调度顾问核心
func NewAdvisor(
	cfg *config.Config,
	batches *state.BatchRegistry,
	zones *state.ZoneMap,
	queue *state.RecommendationQueue,
	metrics *state.MetricsState,
	driver *simulation.Driver,
	cache *consumer.CacheManager,
	auditRepo *repository.AdvisoryEventsRepository,
	logger *zap.Logger,
) *Advisor {
	return &Advisor{
		config:    cfg,
		batches:   batches,
		zones:     zones,
		queue:     queue,
		metrics:   metrics,
		driver:    driver,
		cache:     cache,
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Seed 加载初始运营数据（库存批次、仓区遥测、待审批建议）
// 指标种子在 MetricsState 构造时已就位，这里不重算，保持上线基线
func (a *Advisor) Seed(ctx context.Context) error {
	for _, b := range state.SeedBatches() {
		if err := a.batches.Restore(b); err != nil {
			return fmt.Errorf("failed to seed batch %s: %w", b.ID, err)
		}
	}

	for zoneID, t := range state.SeedZoneTelemetry() {
		if _, err := a.zones.UpdateZone(zoneID, t); err != nil {
			return fmt.Errorf("failed to seed zone %s: %w", zoneID, err)
		}
	}

	for _, rec := range state.SeedRecommendations() {
		if _, err := a.raiseAndAudit(ctx, rec); err != nil {
			return fmt.Errorf("failed to seed recommendation %s: %w", rec.ID, err)
		}
	}

	a.refreshCaches(ctx)

	a.logger.Info("Seed data loaded",
		zap.Int("batches", len(state.SeedBatches())),
		zap.Int("recommendations", len(state.SeedRecommendations())),
	)

	return nil
}

// ============================================
// 批次操作
// ============================================

// AddBatch 批次入库
func (a *Advisor) AddBatch(ctx context.Context, in state.AddBatchInput) (models.Batch, error) {
	batch, err := a.batches.AddBatch(in)
	if err != nil {
		return models.Batch{}, err
	}

	a.recompute()
	a.refreshCaches(ctx)

	return batch, nil
}

// GetBatch 获取单个批次
func (a *Advisor) GetBatch(id string) (models.Batch, error) {
	return a.batches.Get(id)
}

// Batches 批次列表快照
func (a *Advisor) Batches() []models.Batch {
	return a.batches.Snapshot()
}

// RequestAnalysis 请求批次风险分析
// 评估结果为 High 时自动生成批次级调度建议（同批次最多一条 pending）
func (a *Advisor) RequestAnalysis(ctx context.Context, id string) (models.Assessment, error) {
	assessment, err := a.batches.RequestAnalysis(ctx, id)
	if err != nil {
		return models.Assessment{}, err
	}

	if assessment.RiskTier == models.RiskHigh {
		batch, err := a.batches.Get(id)
		if err == nil && !batch.Status.IsTerminal() && !a.queue.HasPendingForBatch(id) {
			rec := models.Recommendation{
				Target:        fmt.Sprintf("Batch #%s (%s)", batch.ID, batch.Product),
				BatchID:       batch.ID,
				ZoneID:        batch.ZoneID,
				Reason:        fmt.Sprintf("%d%% Spoilage Risk predicted in Zone %s", batch.Risk, batch.ZoneID),
				Action:        assessment.RecommendedAction,
				Priority:      assessment.Priority,
				Confidence:    int(assessment.Confidence * 100),
				PredictedLoss: predictedLoss(batch),
				Risk:          batch.Risk,
			}
			if _, err := a.raiseAndAudit(ctx, rec); err != nil {
				a.logger.Error("Failed to raise recommendation after analysis",
					zap.String("batch_id", id),
					zap.Error(err),
				)
			}
		}
	}

	a.recompute()
	a.refreshCaches(ctx)

	return assessment, nil
}

// Dispatch 批次出库
func (a *Advisor) Dispatch(ctx context.Context, id string) (models.Batch, error) {
	batch, err := a.batches.Dispatch(id)
	if err != nil {
		return models.Batch{}, err
	}

	a.recompute()
	a.refreshCaches(ctx)

	return batch, nil
}

// MarkSpoiled 批次报废
func (a *Advisor) MarkSpoiled(ctx context.Context, id string) (models.Batch, error) {
	batch, err := a.batches.MarkSpoiled(id)
	if err != nil {
		return models.Batch{}, err
	}

	a.recompute()
	a.refreshCaches(ctx)

	return batch, nil
}

// Restrict 限制批次流通
func (a *Advisor) Restrict(ctx context.Context, id string) (models.Batch, error) {
	batch, err := a.batches.Restrict(id)
	if err != nil {
		return models.Batch{}, err
	}

	a.refreshCaches(ctx)

	return batch, nil
}

// Unrestrict 解除批次限制
func (a *Advisor) Unrestrict(ctx context.Context, id string) (models.Batch, error) {
	batch, err := a.batches.Unrestrict(id)
	if err != nil {
		return models.Batch{}, err
	}

	a.refreshCaches(ctx)

	return batch, nil
}

// ============================================
// 建议操作
// ============================================

// Recommendations 活跃建议队列（风险降序，限长来自配置）
func (a *Advisor) Recommendations() []models.Recommendation {
	return a.queue.ActiveQueue(a.config.Advisor.QueueLimit)
}

// Approve 审批通过建议
func (a *Advisor) Approve(ctx context.Context, id string) (models.Recommendation, error) {
	rec, err := a.queue.Approve(id)
	if err != nil {
		return models.Recommendation{}, err
	}

	a.auditDecision(ctx, rec)
	a.refreshCaches(ctx)

	return rec, nil
}

// Ignore 忽略建议
func (a *Advisor) Ignore(ctx context.Context, id string) (models.Recommendation, error) {
	rec, err := a.queue.Ignore(id)
	if err != nil {
		return models.Recommendation{}, err
	}

	a.auditDecision(ctx, rec)
	a.refreshCaches(ctx)

	return rec, nil
}

// ============================================
// 仓区与遥测
// ============================================

// Zones 仓区列表快照
func (a *Advisor) Zones() []models.Zone {
	return a.zones.Snapshot()
}

// Metrics 聚合指标快照
func (a *Advisor) Metrics() models.Metrics {
	return a.metrics.Snapshot()
}

// ApplyZoneTelemetry 应用一条仓区遥测（消费者轮询回调）
// 仓区更新后级联到区内批次；仓区风险越过告警阈值且无 pending 建议时
// 生成仓区级 P1 建议
func (a *Advisor) ApplyZoneTelemetry(ctx context.Context, zoneID string, t models.ZoneTelemetry) error {
	zone, err := a.zones.UpdateZone(zoneID, t)
	if err != nil {
		return err
	}

	if t.Temperature != nil || t.Humidity != nil {
		a.batches.ApplyZoneTelemetry(zoneID, zone.Temperature, zone.Humidity)
	}

	if zone.Risk > zoneAlertThreshold && !a.queue.HasPendingForZone(zoneID) {
		rec := models.Recommendation{
			Target:        fmt.Sprintf("Zone %s", zoneID),
			ZoneID:        zoneID,
			Reason:        fmt.Sprintf("Sensor anomaly detected in Zone %s (risk %.0f%%)", zoneID, zone.Risk),
			Action:        "Reduce Temp by 2°C",
			Priority:      models.PriorityP1,
			Confidence:    92,
			PredictedLoss: 12000,
			Risk:          int(zone.Risk),
		}
		if _, err := a.raiseAndAudit(ctx, rec); err != nil {
			a.logger.Error("Failed to raise zone recommendation",
				zap.String("zone_id", zoneID),
				zap.Error(err),
			)
		}
	}

	a.recompute()
	a.refreshCaches(ctx)

	return nil
}

// ============================================
// 模拟
// ============================================

// TriggerCriticalEvent 注入临界事件（演练）
func (a *Advisor) TriggerCriticalEvent(ctx context.Context) (bool, []models.Recommendation, error) {
	triggered, raised, err := a.driver.TriggerCriticalEvent()
	if err != nil {
		return triggered, raised, err
	}
	if !triggered {
		return false, nil, nil
	}

	// 模拟器生成的建议同样落审计
	for _, rec := range raised {
		a.auditRaise(ctx, rec)
	}

	a.refreshCaches(ctx)

	return true, raised, nil
}

// ============================================
// 内部辅助
// ============================================

// predictedLoss 预期损失估算（数量 × 单价 × 风险占比）
func predictedLoss(b models.Batch) int64 {
	rate, ok := lossRatePerKg[b.Product]
	if !ok {
		rate = defaultLossRatePerKg
	}
	return int64(b.Quantity) * rate * int64(b.Risk) / 100
}

// raiseAndAudit 入队建议并落审计
func (a *Advisor) raiseAndAudit(ctx context.Context, rec models.Recommendation) (models.Recommendation, error) {
	raised, err := a.queue.Raise(rec)
	if err != nil {
		return models.Recommendation{}, err
	}

	a.auditRaise(ctx, raised)

	return raised, nil
}

// auditRaise 建议生成落审计（审计失败不阻断业务，只记日志）
func (a *Advisor) auditRaise(ctx context.Context, rec models.Recommendation) {
	if a.auditRepo == nil {
		return
	}

	now := time.Now()
	event := &models.AdvisoryEvent{
		EventID:       uuid.New().String(),
		RecID:         rec.ID,
		Target:        rec.Target,
		Reason:        rec.Reason,
		Action:        rec.Action,
		Priority:      string(rec.Priority),
		Confidence:    rec.Confidence,
		PredictedLoss: rec.PredictedLoss,
		Risk:          rec.Risk,
		Status:        string(rec.Status),
		RaisedAt:      rec.RaisedAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if rec.BatchID != "" {
		batchID := rec.BatchID
		event.BatchID = &batchID
	}
	if rec.ZoneID != "" {
		zoneID := rec.ZoneID
		event.ZoneID = &zoneID
	}

	if err := a.auditRepo.CreateAdvisoryEvent(ctx, event); err != nil {
		a.logger.Error("Failed to audit recommendation",
			zap.String("rec_id", rec.ID),
			zap.Error(err),
		)
	}
}

// auditDecision 建议决策落审计
func (a *Advisor) auditDecision(ctx context.Context, rec models.Recommendation) {
	if a.auditRepo == nil || rec.DecidedAt == nil {
		return
	}

	if err := a.auditRepo.UpdateAdvisoryStatus(ctx, rec.ID, string(rec.Status), *rec.DecidedAt); err != nil {
		a.logger.Error("Failed to audit recommendation decision",
			zap.String("rec_id", rec.ID),
			zap.Error(err),
		)
	}
}

// recompute 从批次和仓区快照重算派生指标
func (a *Advisor) recompute() {
	a.metrics.Recompute(a.batches.Snapshot(), a.zones.Snapshot())
}

// refreshCaches 推送展示快照到 Redis（cache 为 nil 时跳过）
func (a *Advisor) refreshCaches(ctx context.Context) {
	if a.cache == nil {
		return
	}

	if err := a.cache.UpdateBatchCache(ctx, a.batches.Snapshot()); err != nil {
		a.logger.Error("Failed to update batch cache", zap.Error(err))
	}
	if err := a.cache.UpdateZoneCache(ctx, a.zones.Snapshot()); err != nil {
		a.logger.Error("Failed to update zone cache", zap.Error(err))
	}
	if err := a.cache.UpdateQueueCache(ctx, a.Recommendations()); err != nil {
		a.logger.Error("Failed to update queue cache", zap.Error(err))
	}
	if err := a.cache.UpdateMetricsCache(ctx, a.metrics.Snapshot()); err != nil {
		a.logger.Error("Failed to update metrics cache", zap.Error(err))
	}
}
