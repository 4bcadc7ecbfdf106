package state

import (
	"time"

	"coldchain-advisor/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SeedBatches 初始库存批次（上线时仓库已有的在库货物）
func SeedBatches() []models.Batch {
	return []models.Batch{
		{
			ID: "AF-290", Product: "Tomato", ZoneID: "C4", Quantity: 450, Unit: "Kg",
			HarvestDate: day(2026, time.February, 18), StorageDate: day(2026, time.February, 19), ExpiryDate: day(2026, time.February, 28),
			Temperature: 18.2, Humidity: 72.5,
			Status: models.BatchInStorage, Risk: 87, RiskTier: models.RiskHigh,
			History: []models.HistoryEntry{
				{Time: day(2026, time.February, 19), Action: "Received at Hub", Actor: "Admin"},
				{Time: day(2026, time.February, 19), Action: "Zone C4 Allocation", Actor: "AI Suggester"},
				{Time: day(2026, time.February, 21), Action: "Quality Check: Pass", Actor: "QA Team"},
			},
		},
		{
			ID: "AF-412", Product: "Onion", ZoneID: "B2", Quantity: 1200, Unit: "Kg",
			HarvestDate: day(2026, time.January, 22), StorageDate: day(2026, time.January, 24), ExpiryDate: day(2026, time.April, 15),
			Temperature: 12.5, Humidity: 45.0,
			Status: models.BatchInStorage, Risk: 12, RiskTier: models.RiskLow,
			History: []models.HistoryEntry{
				{Time: day(2026, time.January, 24), Action: "Stored in Bulk", Actor: "Admin"},
			},
		},
		{
			ID: "AF-105", Product: "Potato", ZoneID: "A1", Quantity: 800, Unit: "Kg",
			HarvestDate: day(2026, time.February, 10), StorageDate: day(2026, time.February, 12), ExpiryDate: day(2026, time.May, 10),
			Temperature: 10.0, Humidity: 85.0,
			Status: models.BatchInStorage, Risk: 10, RiskTier: models.RiskLow,
			History: []models.HistoryEntry{
				{Time: day(2026, time.February, 12), Action: "Cold Storage Entry", Actor: "Admin"},
			},
		},
		{
			ID: "AF-332", Product: "Tomato", ZoneID: "C2", Quantity: 300, Unit: "Kg",
			HarvestDate: day(2026, time.February, 20), StorageDate: day(2026, time.February, 21), ExpiryDate: day(2026, time.March, 5),
			Temperature: 14.5, Humidity: 64.2,
			Status: models.BatchInStorage, Risk: 18, RiskTier: models.RiskLow,
			History: []models.HistoryEntry{
				{Time: day(2026, time.February, 21), Action: "Allocated Zone C2", Actor: "Admin"},
			},
		},
		{
			ID: "AF-982", Product: "Grapes", ZoneID: "D1", Quantity: 150, Unit: "Kg",
			HarvestDate: day(2026, time.February, 25), StorageDate: day(2026, time.February, 26), ExpiryDate: day(2026, time.March, 5),
			Temperature: 22.0, Humidity: 55.0,
			Status: models.BatchRestricted, Risk: 64, RiskTier: models.RiskMedium,
			History: []models.HistoryEntry{
				{Time: day(2026, time.February, 26), Action: "Ambient Zone D1", Actor: "Admin"},
			},
		},
	}
}

// SeedRecommendations 初始调度建议（两条待审批建议）
func SeedRecommendations() []models.Recommendation {
	return []models.Recommendation{
		{
			ID: "REC-001", Target: "Batch #AF-290 (Tomato)", BatchID: "AF-290", ZoneID: "C4",
			Reason: "87% Spoilage Risk predicted in Zone C-4", Action: "Dispatch Immediately",
			Priority: models.PriorityP1, Confidence: 96, PredictedLoss: 42500, Risk: 87,
		},
		{
			ID: "REC-002", Target: "Zone A-2", ZoneID: "A2",
			Reason: "Humidity anomaly detected (78%)", Action: "Reduce Temp by 2°C",
			Priority: models.PriorityP2, Confidence: 92, PredictedLoss: 12000, Risk: 55,
		},
	}
}

// SeedZoneTelemetry 初始仓区遥测覆盖（C4 为高湿度重点观察区）
func SeedZoneTelemetry() map[string]models.ZoneTelemetry {
	temp := 14.5
	risk := 12.0
	return map[string]models.ZoneTelemetry{
		"C4": {Temperature: &temp, Risk: &risk},
	}
}
