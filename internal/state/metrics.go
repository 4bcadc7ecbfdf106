package state

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"coldchain-advisor/internal/models"
)

// 风险超过该阈值的批次计入 at-risk 统计
const atRiskThreshold = 70

// MetricsState 进程级聚合指标
// 状态标签是 at-risk 数量的派生值；只有模拟器可以用 critical 覆盖强制 critical_alert
type MetricsState struct {
	mu               sync.Mutex
	metrics          models.Metrics
	criticalOverride bool
	logger           *zap.Logger
}

// NewMetricsState 创建聚合指标（种子值来自初始运营数据）
func NewMetricsState(logger *zap.Logger) *MetricsState {
	return &MetricsState{
		metrics: models.Metrics{
			LossPrevented: 124500,
			AtRiskBatches: 3,
			Utilization:   78.5,
			AvgTemp:       14.2,
			AvgHumidity:   64,
			Status:        models.SystemOptimal,
		},
		logger: logger,
	}
}

// Snapshot 返回当前指标副本
func (s *MetricsState) Snapshot() models.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// ApplyApproval 建议审批通过的指标副作用（队列保证每个建议最多调用一次）
// 累计避免损失、at-risk 计数减一（下限 0）、调度类动作小幅下调利用率
func (s *MetricsState) ApplyApproval(rec models.Recommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LossPrevented += rec.PredictedLoss
	if s.metrics.AtRiskBatches > 0 {
		s.metrics.AtRiskBatches--
	}
	if strings.Contains(rec.Action, "Dispatch") {
		s.metrics.Utilization -= 1.5
		if s.metrics.Utilization < 0 {
			s.metrics.Utilization = 0
		}
	}
	s.recomputeStatusLocked()

	s.logger.Info("Metrics updated on approval",
		zap.String("rec_id", rec.ID),
		zap.Int64("loss_prevented", s.metrics.LossPrevented),
		zap.Int("at_risk_batches", s.metrics.AtRiskBatches),
	)
}

// Recompute 根据批次与仓区快照重算派生指标（每次状态变更操作之后调用）
func (s *MetricsState) Recompute(batches []models.Batch, zones []models.Zone) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	atRisk := 0
	for _, b := range batches {
		if b.Status.IsTerminal() {
			continue
		}
		total++
		if b.Risk > atRiskThreshold {
			atRisk++
		}
	}
	s.metrics.TotalBatches = total
	s.metrics.AtRiskBatches = atRisk

	if len(zones) > 0 {
		var sumTemp, sumHum float64
		for _, z := range zones {
			sumTemp += z.Temperature
			sumHum += z.Humidity
		}
		s.metrics.AvgTemp = sumTemp / float64(len(zones))
		s.metrics.AvgHumidity = sumHum / float64(len(zones))
	}

	s.recomputeStatusLocked()
}

// AddAtRisk 增加 at-risk 计数（模拟器注入异常时使用）
func (s *MetricsState) AddAtRisk(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.AtRiskBatches += n
	s.recomputeStatusLocked()
}

// SetCriticalOverride 模拟器强制系统状态为 critical_alert
func (s *MetricsState) SetCriticalOverride() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criticalOverride = true
	s.metrics.Status = models.SystemCriticalAlert
}

// ClearCriticalOverride 解除强制状态，恢复派生规则
func (s *MetricsState) ClearCriticalOverride() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criticalOverride = false
	s.recomputeStatusLocked()
}

// recomputeStatusLocked 状态标签派生规则（调用方必须持锁）
func (s *MetricsState) recomputeStatusLocked() {
	if s.criticalOverride {
		s.metrics.Status = models.SystemCriticalAlert
		return
	}
	if s.metrics.AtRiskBatches > 10 {
		s.metrics.Status = models.SystemActionRequired
		return
	}
	s.metrics.Status = models.SystemOptimal
}
