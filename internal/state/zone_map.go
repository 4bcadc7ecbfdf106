package state

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"coldchain-advisor/internal/models"
)

// 固定仓区网格：行 A-D，每行 6 列，初始化后不再增删
var zoneRows = []string{"A", "B", "C", "D"}

const zoneColumns = 6

// ZoneMap 仓区表（每个仓区的聚合遥测与派生状态）
// 仓区状态只允许从风险值派生，绝不直接设置
type ZoneMap struct {
	mu     sync.Mutex
	zones  map[string]*models.Zone
	order  []string
	logger *zap.Logger
}

// NewZoneMap 创建仓区表并初始化固定网格
func NewZoneMap(logger *zap.Logger) *ZoneMap {
	m := &ZoneMap{
		zones:  make(map[string]*models.Zone),
		logger: logger,
	}

	for _, row := range zoneRows {
		for col := 1; col <= zoneColumns; col++ {
			id := fmt.Sprintf("%s%d", row, col)
			zone := &models.Zone{
				ID:          id,
				Temperature: 15.0,
				Humidity:    60.0,
				Risk:        10,
			}
			zone.Status = models.ZoneStatusForRisk(zone.Risk)
			m.zones[id] = zone
			m.order = append(m.order, id)
		}
	}

	return m
}

// UpdateZone 合并部分遥测字段后重新派生状态
// 状态派生不可省略：>80 critical，>50 warning，否则 safe
func (m *ZoneMap) UpdateZone(zoneID string, t models.ZoneTelemetry) (models.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	zone, ok := m.zones[zoneID]
	if !ok {
		return models.Zone{}, &models.NotFoundError{Kind: "zone", ID: zoneID}
	}

	if t.Temperature != nil {
		zone.Temperature = *t.Temperature
	}
	if t.Humidity != nil {
		zone.Humidity = *t.Humidity
	}
	if t.Risk != nil {
		zone.Risk = *t.Risk
	}
	if t.BatchCount != nil {
		zone.BatchCount = *t.BatchCount
	}

	zone.Status = models.ZoneStatusForRisk(zone.Risk)

	m.logger.Debug("Zone updated",
		zap.String("zone_id", zoneID),
		zap.Float64("risk", zone.Risk),
		zap.String("status", string(zone.Status)),
	)

	return *zone, nil
}

// Get 获取单个仓区副本
func (m *ZoneMap) Get(zoneID string) (models.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	zone, ok := m.zones[zoneID]
	if !ok {
		return models.Zone{}, &models.NotFoundError{Kind: "zone", ID: zoneID}
	}
	return *zone, nil
}

// Snapshot 返回所有仓区的有序列表（网格顺序）
func (m *ZoneMap) Snapshot() []models.Zone {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Zone, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.zones[id])
	}
	return out
}
