package consumer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coldchain-advisor/internal/config"
	"coldchain-advisor/internal/models"
)

// TelemetrySink 遥测处理接口（由顾问核心实现）
type TelemetrySink interface {
	// ApplyZoneTelemetry 应用一条仓区遥测（更新仓区、级联批次、重算指标）
	ApplyZoneTelemetry(ctx context.Context, zoneID string, t models.ZoneTelemetry) error
}

// TelemetryConsumer 遥测消费者（轮询 Redis 仓区遥测缓存）
// 已处理的遥测通过 RecordedAt 去重，避免重复级联
type TelemetryConsumer struct {
	config    *config.Config
	cache     *CacheManager
	logger    *zap.Logger
	processed map[string]int64 // zone_id -> 最近处理的 RecordedAt
}

// NewTelemetryConsumer 创建遥测消费者
func NewTelemetryConsumer(
	cfg *config.Config,
	cache *CacheManager,
	logger *zap.Logger,
) *TelemetryConsumer {
	return &TelemetryConsumer{
		config:    cfg,
		cache:     cache,
		logger:    logger,
		processed: make(map[string]int64),
	}
}

// Start 启动消费者（轮询模式）
func (c *TelemetryConsumer) Start(ctx context.Context, sink TelemetrySink) error {
	c.logger.Info("Telemetry consumer started",
		zap.Int("poll_interval", c.config.Advisor.PollInterval),
	)

	ticker := time.NewTicker(time.Duration(c.config.Advisor.PollInterval) * time.Second)
	defer ticker.Stop()

	// 立即执行一次
	if err := c.consumeAll(ctx, sink); err != nil {
		c.logger.Error("Failed to consume telemetry on startup",
			zap.Error(err),
		)
	}

	// 定期轮询
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Telemetry consumer stopped")
			return nil
		case <-ticker.C:
			if err := c.consumeAll(ctx, sink); err != nil {
				c.logger.Error("Failed to consume telemetry",
					zap.Error(err),
				)
				// 继续执行，不中断
			}
		}
	}
}

// consumeAll 处理所有仓区的待处理遥测
func (c *TelemetryConsumer) consumeAll(ctx context.Context, sink TelemetrySink) error {
	zoneIDs, err := c.cache.ListTelemetryZoneIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list telemetry zones: %w", err)
	}

	c.logger.Debug("Consuming zone telemetry",
		zap.Int("zone_count", len(zoneIDs)),
	)

	for _, zoneID := range zoneIDs {
		// 检查上下文是否已取消
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		t, err := c.cache.GetZoneTelemetry(ctx, zoneID)
		if err != nil {
			// 键在扫描和读取之间过期，跳过
			c.logger.Debug("Telemetry not found for zone",
				zap.String("zone_id", zoneID),
				zap.Error(err),
			)
			continue
		}

		// RecordedAt 未前进则视为已处理
		if t.RecordedAt != 0 && t.RecordedAt <= c.processed[zoneID] {
			continue
		}

		if err := sink.ApplyZoneTelemetry(ctx, zoneID, *t); err != nil {
			c.logger.Error("Failed to apply zone telemetry",
				zap.String("zone_id", zoneID),
				zap.Error(err),
			)
			continue
		}
		if t.RecordedAt != 0 {
			c.processed[zoneID] = t.RecordedAt
		}
	}

	return nil
}
