package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"coldchain-advisor/internal/config"
	"coldchain-advisor/internal/models"
)

// CacheManager Redis 缓存管理器
// 两类键：展示快照（本服务写，供看板读）与仓区遥测（传感器网关写，本服务读）
type CacheManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// GetZoneTelemetry 读取仓区遥测缓存
func (c *CacheManager) GetZoneTelemetry(ctx context.Context, zoneID string) (*models.ZoneTelemetry, error) {
	// 构建缓存键
	key := fmt.Sprintf("%s%s%s",
		c.config.Advisor.Cache.TelemetryPrefix,
		zoneID,
		c.config.Advisor.Cache.TelemetrySuffix,
	)

	val, err := c.redisClient.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("telemetry not found for zone: %s", zoneID)
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	// 反序列化
	var t models.ZoneTelemetry
	if err := json.Unmarshal([]byte(val), &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal zone telemetry: %w", err)
	}

	return &t, nil
}

// SetZoneTelemetry 写入仓区遥测缓存（MQTT 订阅回调使用）
func (c *CacheManager) SetZoneTelemetry(ctx context.Context, zoneID string, t models.ZoneTelemetry) error {
	key := fmt.Sprintf("%s%s%s",
		c.config.Advisor.Cache.TelemetryPrefix,
		zoneID,
		c.config.Advisor.Cache.TelemetrySuffix,
	)

	jsonData, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal zone telemetry: %w", err)
	}

	if err := c.redisClient.Set(ctx, key, jsonData, 0).Err(); err != nil {
		return fmt.Errorf("failed to set telemetry cache: %w", err)
	}

	c.logger.Debug("Updated zone telemetry cache",
		zap.String("zone_id", zoneID),
		zap.String("key", key),
	)

	return nil
}

// ListTelemetryZoneIDs 扫描遥测键，返回有待处理遥测的仓区 ID 列表
func (c *CacheManager) ListTelemetryZoneIDs(ctx context.Context) ([]string, error) {
	// 构建匹配模式
	pattern := fmt.Sprintf("%s*%s",
		c.config.Advisor.Cache.TelemetryPrefix,
		c.config.Advisor.Cache.TelemetrySuffix,
	)

	var zoneIDs []string
	iter := c.redisClient.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		// 提取 zone_id（去掉前缀和后缀）
		zoneID := key[len(c.config.Advisor.Cache.TelemetryPrefix):]
		zoneID = zoneID[:len(zoneID)-len(c.config.Advisor.Cache.TelemetrySuffix)]
		zoneIDs = append(zoneIDs, zoneID)
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}

	return zoneIDs, nil
}

// updateSnapshot 写展示快照（序列化后带 TTL 落入 Redis）
func (c *CacheManager) updateSnapshot(ctx context.Context, name string, v any) error {
	key := c.config.Advisor.Cache.SnapshotPrefix + name

	jsonData, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s snapshot: %w", name, err)
	}

	err = c.redisClient.Set(
		ctx,
		key,
		jsonData,
		time.Duration(c.config.Advisor.Cache.SnapshotTTL)*time.Second,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to set %s snapshot: %w", name, err)
	}

	c.logger.Debug("Updated snapshot cache", zap.String("key", key))

	return nil
}

// UpdateBatchCache 更新批次列表快照
func (c *CacheManager) UpdateBatchCache(ctx context.Context, batches []models.Batch) error {
	return c.updateSnapshot(ctx, "batches", batches)
}

// UpdateZoneCache 更新仓区列表快照
func (c *CacheManager) UpdateZoneCache(ctx context.Context, zones []models.Zone) error {
	return c.updateSnapshot(ctx, "zones", zones)
}

// UpdateQueueCache 更新活跃建议队列快照
func (c *CacheManager) UpdateQueueCache(ctx context.Context, recs []models.Recommendation) error {
	return c.updateSnapshot(ctx, "recommendations", recs)
}

// UpdateMetricsCache 更新聚合指标快照
func (c *CacheManager) UpdateMetricsCache(ctx context.Context, metrics models.Metrics) error {
	return c.updateSnapshot(ctx, "metrics", metrics)
}
