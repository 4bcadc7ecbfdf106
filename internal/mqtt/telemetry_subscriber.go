package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"coldchain-advisor/internal/config"
	"coldchain-advisor/internal/models"
)

// TelemetryStore 遥测落地接口（Redis 缓存实现）
type TelemetryStore interface {
	SetZoneTelemetry(ctx context.Context, zoneID string, t models.ZoneTelemetry) error
}

// TelemetrySubscriber 仓区遥测订阅器
// 订阅 <prefix>/zone/<zone_id>/telemetry，解析后写入遥测缓存，
// 由轮询消费者统一应用到内存状态。
type TelemetrySubscriber struct {
	client *Client
	config *config.MQTTConfig
	store  TelemetryStore
	logger *zap.Logger
}

// NewTelemetrySubscriber 创建遥测订阅器
func NewTelemetrySubscriber(client *Client, cfg *config.MQTTConfig, store TelemetryStore, logger *zap.Logger) *TelemetrySubscriber {
	return &TelemetrySubscriber{
		client: client,
		config: cfg,
		store:  store,
		logger: logger,
	}
}

// Start 订阅遥测主题
func (s *TelemetrySubscriber) Start() error {
	topic := fmt.Sprintf("%s/zone/+/telemetry", s.config.TopicPrefix)

	if err := s.client.Subscribe(topic, s.config.QoS, s.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe telemetry topic: %w", err)
	}

	s.logger.Info("Telemetry subscriber started", zap.String("topic", topic))

	return nil
}

// handleMessage 处理一条遥测消息
func (s *TelemetrySubscriber) handleMessage(topic string, payload []byte) error {
	zoneID, err := parseZoneID(topic, s.config.TopicPrefix)
	if err != nil {
		return err
	}

	var t models.ZoneTelemetry
	if err := json.Unmarshal(payload, &t); err != nil {
		return fmt.Errorf("failed to unmarshal telemetry payload: %w", err)
	}

	if err := s.store.SetZoneTelemetry(context.Background(), zoneID, t); err != nil {
		return fmt.Errorf("failed to store telemetry for zone %s: %w", zoneID, err)
	}

	s.logger.Debug("Telemetry received",
		zap.String("zone_id", zoneID),
		zap.String("topic", topic),
	)

	return nil
}

// parseZoneID 从主题提取仓区 ID（主题格式 <prefix>/zone/<zone_id>/telemetry）
func parseZoneID(topic, prefix string) (string, error) {
	rest := strings.TrimPrefix(topic, prefix+"/")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] != "zone" || parts[2] != "telemetry" || parts[1] == "" {
		return "", fmt.Errorf("unexpected telemetry topic: %s", topic)
	}
	return parts[1], nil
}
