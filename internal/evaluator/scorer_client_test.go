package evaluator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coldchain-advisor/internal/models"
)

func newTestClient(baseURL string) *ScorerClient {
	fallback := NewRiskModelWithJitter(func() float64 { return 0 })
	return NewScorerClient(baseURL, 2*time.Second, 0, fallback, zap.NewNop())
}

func TestAnalyze_ScorerSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/analyze", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Tomato", req["produce"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"spoilage_risk":      "High",
			"remaining_days":     3,
			"priority":           "P1",
			"recommended_action": "Dispatch to Local Market",
			"confidence":         0.96,
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	a := client.Analyze(context.Background(), "AF-290", Snapshot{
		Product: "Tomato", Temperature: 18.2, Humidity: 72.5, StorageDays: 10,
	})

	assert.Equal(t, models.RiskHigh, a.RiskTier)
	assert.Equal(t, models.PriorityP1, a.Priority)
	assert.Equal(t, models.AssessmentSourceModel, a.Source)
	assert.InDelta(t, 0.96, a.Confidence, 1e-9)
}

func TestAnalyze_NormalizesModerateTier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"spoilage_risk":      "Moderate",
			"remaining_days":     7,
			"priority":           "P2",
			"recommended_action": "Monitor Closely",
			"confidence":         0.9,
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	a := client.Analyze(context.Background(), "AF-412", Snapshot{Product: "Onion", Temperature: 18, Humidity: 50, StorageDays: 2})

	assert.Equal(t, models.RiskMedium, a.RiskTier)
	assert.Equal(t, models.AssessmentSourceModel, a.Source)
}

func TestAnalyze_TransportErrorFallsBack(t *testing.T) {
	// 指向已关闭的端口，调用必然失败
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)
	a := client.Analyze(context.Background(), "AF-290", Snapshot{
		Product: "Tomato", Temperature: 16, Humidity: 50, StorageDays: 4,
	})

	// 回退规则：Tomato 且温度 > 15
	assert.Equal(t, models.RiskHigh, a.RiskTier)
	assert.Equal(t, models.PriorityP1, a.Priority)
	assert.Equal(t, "Dispatch to Local Market", a.RecommendedAction)
	assert.Equal(t, models.AssessmentSourceFallback, a.Source)
}

func TestAnalyze_ServerErrorFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	a := client.Analyze(context.Background(), "AF-105", Snapshot{Product: "Potato", Temperature: 25, Humidity: 50, StorageDays: 2})

	assert.Equal(t, models.RiskHigh, a.RiskTier)
	assert.Equal(t, "Dispatch Immediately", a.RecommendedAction)
	assert.Equal(t, models.AssessmentSourceFallback, a.Source)
}

func TestAnalyze_InvalidTierFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"spoilage_risk":      "Catastrophic",
			"remaining_days":     0,
			"priority":           "P1",
			"recommended_action": "Panic",
			"confidence":         0.99,
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	a := client.Analyze(context.Background(), "AF-105", Snapshot{Product: "Potato", Temperature: 10, Humidity: 40, StorageDays: 1})

	assert.Equal(t, models.AssessmentSourceFallback, a.Source)
	assert.Equal(t, models.RiskLow, a.RiskTier)
}

func TestAnalyze_DisabledScorerUsesFallback(t *testing.T) {
	client := newTestClient("")

	a := client.Analyze(context.Background(), "AF-105", Snapshot{Product: "Potato", Temperature: 14, Humidity: 50, StorageDays: 3})

	assert.Equal(t, models.AssessmentSourceFallback, a.Source)
	assert.Equal(t, models.RiskLow, a.RiskTier)
	assert.Equal(t, "Maintain Storage", a.RecommendedAction)
}
