package state

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coldchain-advisor/internal/models"
)

// RecommendationQueue 调度建议队列
// 建议终态后保留用于审计，但不再出现在活跃队列中
type RecommendationQueue struct {
	mu      sync.Mutex
	recs    map[string]*models.Recommendation
	order   []string // 插入顺序（稳定排序的平局依据）
	metrics *MetricsState
	logger  *zap.Logger
	now     func() time.Time
}

// NewRecommendationQueue 创建建议队列
func NewRecommendationQueue(metrics *MetricsState, logger *zap.Logger) *RecommendationQueue {
	return &RecommendationQueue{
		recs:    make(map[string]*models.Recommendation),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock 替换时钟（测试用）
func (q *RecommendationQueue) SetClock(now func() time.Time) {
	q.now = now
}

// Raise 插入新的 pending 建议
// id 为空时自动生成；P1 仅允许用于风险 > 80 或显式 critical 触发的场景
func (q *RecommendationQueue) Raise(rec models.Recommendation) (models.Recommendation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if rec.ID == "" {
		rec.ID = "REC-" + strings.ToUpper(uuid.New().String()[:8])
	}
	if _, exists := q.recs[rec.ID]; exists {
		return models.Recommendation{}, fmt.Errorf("recommendation id already exists: %s", rec.ID)
	}

	rec.Status = models.RecommendationPending
	rec.RaisedAt = q.now()
	rec.DecidedAt = nil

	stored := rec
	q.recs[rec.ID] = &stored
	q.order = append(q.order, rec.ID)

	q.logger.Info("Recommendation raised",
		zap.String("rec_id", rec.ID),
		zap.String("priority", string(rec.Priority)),
		zap.String("target", rec.Target),
		zap.Int64("predicted_loss", rec.PredictedLoss),
	)

	return rec, nil
}

// Approve 审批通过建议
// 仅 pending 可审批；终态建议拒绝，防止 loss-prevented 被重复累加
func (q *RecommendationQueue) Approve(id string) (models.Recommendation, error) {
	q.mu.Lock()

	rec, ok := q.recs[id]
	if !ok {
		q.mu.Unlock()
		return models.Recommendation{}, &models.NotFoundError{Kind: "recommendation", ID: id}
	}
	if rec.Status != models.RecommendationPending {
		q.mu.Unlock()
		return models.Recommendation{}, &models.InvalidTransitionError{
			Kind: "recommendation", ID: id, From: string(rec.Status), Reason: "recommendation already decided",
		}
	}

	rec.Status = models.RecommendationApproved
	decided := q.now()
	rec.DecidedAt = &decided
	out := *rec
	q.mu.Unlock()

	// 指标副作用在队列锁外执行，每个建议最多触发一次（终态检查保证）
	q.metrics.ApplyApproval(out)

	q.logger.Info("Recommendation approved", zap.String("rec_id", id))

	return out, nil
}

// Ignore 忽略建议（pending → ignored，无指标副作用）
func (q *RecommendationQueue) Ignore(id string) (models.Recommendation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, ok := q.recs[id]
	if !ok {
		return models.Recommendation{}, &models.NotFoundError{Kind: "recommendation", ID: id}
	}
	if rec.Status != models.RecommendationPending {
		return models.Recommendation{}, &models.InvalidTransitionError{
			Kind: "recommendation", ID: id, From: string(rec.Status), Reason: "recommendation already decided",
		}
	}

	rec.Status = models.RecommendationIgnored
	decided := q.now()
	rec.DecidedAt = &decided

	q.logger.Info("Recommendation ignored", zap.String("rec_id", id))

	return *rec, nil
}

// ActiveQueue 返回按关联风险降序排列的前 N 条 pending 建议
// 风险相同时按插入顺序保持稳定
func (q *RecommendationQueue) ActiveQueue(limit int) []models.Recommendation {
	q.mu.Lock()
	defer q.mu.Unlock()

	var pending []models.Recommendation
	for _, id := range q.order {
		rec := q.recs[id]
		if rec.Status == models.RecommendationPending {
			pending = append(pending, *rec)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Risk > pending[j].Risk
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending
}

// Snapshot 返回全部建议（含终态，审计用）
func (q *RecommendationQueue) Snapshot() []models.Recommendation {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.Recommendation, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, *q.recs[id])
	}
	return out
}

// HasPendingForZone 指定仓区是否已有 pending 建议（避免重复告警）
func (q *RecommendationQueue) HasPendingForZone(zoneID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, rec := range q.recs {
		if rec.ZoneID == zoneID && rec.Status == models.RecommendationPending {
			return true
		}
	}
	return false
}

// HasPendingForBatch 指定批次是否已有 pending 建议
func (q *RecommendationQueue) HasPendingForBatch(batchID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, rec := range q.recs {
		if rec.BatchID == batchID && rec.Status == models.RecommendationPending {
			return true
		}
	}
	return false
}
