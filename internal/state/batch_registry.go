package state

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coldchain-advisor/internal/evaluator"
	"coldchain-advisor/internal/models"
)

// Assessor 批次风险评估接口（生产环境为 ScorerClient，测试可替换）
type Assessor interface {
	Analyze(ctx context.Context, batchID string, in evaluator.Snapshot) models.Assessment
}

// 风险超过该阈值的批次才允许进入 restricted 状态
const restrictThreshold = 60

// BatchRegistry 批次注册表（库存批次及其遥测/状态的唯一权威来源）
// 批次永不硬删除，只会迁移到 dispatched/spoiled 终态
type BatchRegistry struct {
	mu       sync.Mutex
	batches  map[string]*models.Batch
	order    []string // 插入顺序
	model    *evaluator.RiskModel
	assessor Assessor
	logger   *zap.Logger
	now      func() time.Time
}

// NewBatchRegistry 创建批次注册表
func NewBatchRegistry(model *evaluator.RiskModel, assessor Assessor, logger *zap.Logger) *BatchRegistry {
	return &BatchRegistry{
		batches:  make(map[string]*models.Batch),
		model:    model,
		assessor: assessor,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock 替换时钟（测试用）
func (r *BatchRegistry) SetClock(now func() time.Time) {
	r.now = now
}

// AddBatchInput 入库参数
type AddBatchInput struct {
	ID          string // 为空时自动生成
	Product     string
	ZoneID      string
	Quantity    float64
	Unit        string
	HarvestDate time.Time
	ExpiryDate  time.Time
	Temperature float64
	Humidity    float64
}

// AddBatch 批次入库
// product/zone/quantity 必填；初始状态 in_storage，初始风险由确定性规则按 storage_days=0 计算
func (r *BatchRegistry) AddBatch(in AddBatchInput) (models.Batch, error) {
	if in.Product == "" {
		return models.Batch{}, fmt.Errorf("product is required")
	}
	if in.ZoneID == "" {
		return models.Batch{}, fmt.Errorf("zone is required")
	}
	if in.Quantity <= 0 {
		return models.Batch{}, fmt.Errorf("quantity must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := in.ID
	if id == "" {
		id = "AF-" + strings.ToUpper(uuid.New().String()[:8])
	}
	if _, exists := r.batches[id]; exists {
		return models.Batch{}, fmt.Errorf("batch id already exists: %s", id)
	}

	now := r.now()
	unit := in.Unit
	if unit == "" {
		unit = "Kg"
	}

	initial := r.model.Evaluate(evaluator.Snapshot{
		Product:     in.Product,
		Temperature: in.Temperature,
		Humidity:    in.Humidity,
		StorageDays: 0,
	})

	batch := &models.Batch{
		ID:          id,
		Product:     in.Product,
		ZoneID:      in.ZoneID,
		Quantity:    in.Quantity,
		Unit:        unit,
		HarvestDate: in.HarvestDate,
		StorageDate: now,
		ExpiryDate:  in.ExpiryDate,
		Temperature: in.Temperature,
		Humidity:    in.Humidity,
		Status:      models.BatchInStorage,
		Risk:        initial.Score(),
		RiskTier:    initial.RiskTier,
		History: []models.HistoryEntry{
			{Time: now, Action: "Entry", Actor: "Admin"},
		},
	}

	r.batches[id] = batch
	r.order = append(r.order, id)

	r.logger.Info("Batch added",
		zap.String("batch_id", id),
		zap.String("product", in.Product),
		zap.String("zone_id", in.ZoneID),
		zap.Int("risk", batch.Risk),
	)

	return copyBatch(batch), nil
}

// Restore 按原样插入批次（初始数据加载用，不经过规则重算）
func (r *BatchRegistry) Restore(b models.Batch) error {
	if b.ID == "" {
		return fmt.Errorf("batch id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.batches[b.ID]; exists {
		return fmt.Errorf("batch id already exists: %s", b.ID)
	}

	stored := copyBatch(&b)
	r.batches[b.ID] = &stored
	r.order = append(r.order, b.ID)
	return nil
}

// Get 获取批次副本
func (r *BatchRegistry) Get(id string) (models.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[id]
	if !ok {
		return models.Batch{}, &models.NotFoundError{Kind: "batch", ID: id}
	}
	return copyBatch(batch), nil
}

// Snapshot 返回所有批次的有序副本（插入顺序）
func (r *BatchRegistry) Snapshot() []models.Batch {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Batch, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, copyBatch(r.batches[id]))
	}
	return out
}

// RequestAnalysis 请求批次风险分析
// 每个批次同一时刻最多一个在途请求（analyzing 标志守卫）；评估期间不持锁，
// 结果原子落盘；若批次在评估期间进入终态则丢弃结果，但 analyzing 必定被清除
func (r *BatchRegistry) RequestAnalysis(ctx context.Context, id string) (models.Assessment, error) {
	r.mu.Lock()
	batch, ok := r.batches[id]
	if !ok {
		r.mu.Unlock()
		return models.Assessment{}, &models.NotFoundError{Kind: "batch", ID: id}
	}
	if batch.Analyzing {
		r.mu.Unlock()
		return models.Assessment{}, &models.AlreadyInProgressError{BatchID: id}
	}

	batch.Analyzing = true
	snapshot := evaluator.Snapshot{
		Product:     batch.Product,
		Temperature: batch.Temperature,
		Humidity:    batch.Humidity,
		StorageDays: batch.StorageDays(r.now()),
	}
	r.mu.Unlock()

	// 评估可能走外部 HTTP（带回退），不能持锁等待
	assessment := r.assessor.Analyze(ctx, id, snapshot)

	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok = r.batches[id]
	if !ok {
		// 批次不可删除，这里只是防御性兜底
		return assessment, nil
	}
	batch.Analyzing = false

	if batch.Status.IsTerminal() {
		// 评估期间批次已被独立调度/报废，丢弃过期结果
		r.logger.Info("Discarding stale analysis result",
			zap.String("batch_id", id),
			zap.String("status", string(batch.Status)),
		)
		return assessment, nil
	}

	a := assessment
	batch.Risk = a.Score()
	batch.RiskTier = a.RiskTier
	batch.LastAnalysis = &a
	batch.Explanation = fmt.Sprintf("AI Analysis Complete: %s. Confidence level: %d%%.",
		a.RecommendedAction, int(a.Confidence*100))
	batch.History = append(batch.History, models.HistoryEntry{
		Time: r.now(), Action: "AI Analysis", Actor: "Risk Model",
	})

	r.logger.Info("Batch analysis applied",
		zap.String("batch_id", id),
		zap.String("risk_tier", string(a.RiskTier)),
		zap.String("priority", string(a.Priority)),
		zap.String("source", a.Source),
	)

	return assessment, nil
}

// Dispatch 批次出库（终态迁移）
// 重复调度按非法迁移拒绝，保证聚合指标不被重复计入
func (r *BatchRegistry) Dispatch(id string) (models.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[id]
	if !ok {
		return models.Batch{}, &models.NotFoundError{Kind: "batch", ID: id}
	}
	if batch.Status.IsTerminal() {
		return models.Batch{}, &models.InvalidTransitionError{
			Kind: "batch", ID: id, From: string(batch.Status), Reason: "batch already in terminal state",
		}
	}

	batch.Status = models.BatchDispatched
	batch.Risk = 0
	batch.History = append(batch.History, models.HistoryEntry{
		Time: r.now(), Action: "Dispatched", Actor: "Admin",
	})

	r.logger.Info("Batch dispatched", zap.String("batch_id", id))

	return copyBatch(batch), nil
}

// MarkSpoiled 批次报废（终态迁移）
func (r *BatchRegistry) MarkSpoiled(id string) (models.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[id]
	if !ok {
		return models.Batch{}, &models.NotFoundError{Kind: "batch", ID: id}
	}
	if batch.Status.IsTerminal() {
		return models.Batch{}, &models.InvalidTransitionError{
			Kind: "batch", ID: id, From: string(batch.Status), Reason: "batch already in terminal state",
		}
	}

	batch.Status = models.BatchSpoiled
	batch.History = append(batch.History, models.HistoryEntry{
		Time: r.now(), Action: "Marked Spoiled", Actor: "Admin",
	})

	r.logger.Warn("Batch marked spoiled", zap.String("batch_id", id))

	return copyBatch(batch), nil
}

// Restrict 限制批次流通（仅当风险超过阈值且批次在库）
func (r *BatchRegistry) Restrict(id string) (models.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[id]
	if !ok {
		return models.Batch{}, &models.NotFoundError{Kind: "batch", ID: id}
	}
	if batch.Status != models.BatchInStorage {
		return models.Batch{}, &models.InvalidTransitionError{
			Kind: "batch", ID: id, From: string(batch.Status), Reason: "only in_storage batches can be restricted",
		}
	}
	if batch.Risk <= restrictThreshold {
		return models.Batch{}, &models.InvalidTransitionError{
			Kind: "batch", ID: id, From: string(batch.Status),
			Reason: fmt.Sprintf("risk %d does not exceed restriction threshold %d", batch.Risk, restrictThreshold),
		}
	}

	batch.Status = models.BatchRestricted
	batch.History = append(batch.History, models.HistoryEntry{
		Time: r.now(), Action: "Restricted", Actor: "Risk Model",
	})

	return copyBatch(batch), nil
}

// Unrestrict 解除批次限制
func (r *BatchRegistry) Unrestrict(id string) (models.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[id]
	if !ok {
		return models.Batch{}, &models.NotFoundError{Kind: "batch", ID: id}
	}
	if batch.Status != models.BatchRestricted {
		return models.Batch{}, &models.InvalidTransitionError{
			Kind: "batch", ID: id, From: string(batch.Status), Reason: "batch is not restricted",
		}
	}

	batch.Status = models.BatchInStorage
	batch.History = append(batch.History, models.HistoryEntry{
		Time: r.now(), Action: "Restriction Lifted", Actor: "Admin",
	})

	return copyBatch(batch), nil
}

// ApplyZoneTelemetry 仓区遥测变化级联到仓区内的在库批次
// 更新批次温湿度并按确定性规则重算风险；不覆盖已有的分析结果记录
func (r *BatchRegistry) ApplyZoneTelemetry(zoneID string, temperature, humidity float64) []models.Batch {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated []models.Batch
	for _, id := range r.order {
		batch := r.batches[id]
		if batch.ZoneID != zoneID || batch.Status.IsTerminal() {
			continue
		}

		batch.Temperature = temperature
		batch.Humidity = humidity

		a := r.model.Evaluate(evaluator.Snapshot{
			Product:     batch.Product,
			Temperature: temperature,
			Humidity:    humidity,
			StorageDays: batch.StorageDays(r.now()),
		})
		batch.Risk = a.Score()
		batch.RiskTier = a.RiskTier

		updated = append(updated, copyBatch(batch))
	}

	return updated
}

// copyBatch 深拷贝批次（历史记录单独复制，避免外部篡改内部状态）
func copyBatch(b *models.Batch) models.Batch {
	out := *b
	out.History = make([]models.HistoryEntry, len(b.History))
	copy(out.History, b.History)
	if b.LastAnalysis != nil {
		a := *b.LastAnalysis
		out.LastAnalysis = &a
	}
	return out
}
