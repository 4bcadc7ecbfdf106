package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"coldchain-advisor/internal/models"
	"coldchain-advisor/internal/service"
	"coldchain-advisor/internal/state"
)

// AdvisorHandler 调度顾问 HTTP 处理器
type AdvisorHandler struct {
	advisor *service.Advisor
	logger  *zap.Logger
}

// NewAdvisorHandler 创建处理器
func NewAdvisorHandler(advisor *service.Advisor, logger *zap.Logger) *AdvisorHandler {
	return &AdvisorHandler{
		advisor: advisor,
		logger:  logger,
	}
}

// writeJSON 写出 JSON 响应
func (h *AdvisorHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError 按错误类型映射 HTTP 状态码
func (h *AdvisorHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case models.IsNotFound(err):
		status = http.StatusNotFound
	case models.IsAlreadyInProgress(err), models.IsInvalidTransition(err):
		status = http.StatusConflict
	}
	h.writeJSON(w, status, Fail(err.Error()))
}

// ============================================
// 批次
// ============================================

// ListBatches GET /api/v1/batches
func (h *AdvisorHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, Ok(h.advisor.Batches()))
}

// GetBatch GET /api/v1/batches/{id}
func (h *AdvisorHandler) GetBatch(w http.ResponseWriter, r *http.Request, id string) {
	batch, err := h.advisor.GetBatch(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, Ok(batch))
}

// addBatchRequest 入库请求体
type addBatchRequest struct {
	Product     string  `json:"product"`
	ZoneID      string  `json:"zone_id"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	HarvestDate string  `json:"harvest_date"` // YYYY-MM-DD
	ExpiryDate  string  `json:"expiry_date"`  // YYYY-MM-DD
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// AddBatch POST /api/v1/batches
func (h *AdvisorHandler) AddBatch(w http.ResponseWriter, r *http.Request) {
	var req addBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	in := state.AddBatchInput{
		Product:     req.Product,
		ZoneID:      req.ZoneID,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		Temperature: req.Temperature,
		Humidity:    req.Humidity,
	}
	if req.HarvestDate != "" {
		d, err := time.Parse("2006-01-02", req.HarvestDate)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, Fail("invalid harvest_date"))
			return
		}
		in.HarvestDate = d
	}
	if req.ExpiryDate != "" {
		d, err := time.Parse("2006-01-02", req.ExpiryDate)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, Fail("invalid expiry_date"))
			return
		}
		in.ExpiryDate = d
	}

	batch, err := h.advisor.AddBatch(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, Ok(batch))
}

// BatchAction POST /api/v1/batches/{id}/{action}
func (h *AdvisorHandler) BatchAction(w http.ResponseWriter, r *http.Request, id, action string) {
	ctx := r.Context()

	switch action {
	case "analyze":
		assessment, err := h.advisor.RequestAnalysis(ctx, id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, Ok(assessment))
	case "dispatch":
		batch, err := h.advisor.Dispatch(ctx, id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, Ok(batch))
	case "spoil":
		batch, err := h.advisor.MarkSpoiled(ctx, id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, Ok(batch))
	case "restrict":
		batch, err := h.advisor.Restrict(ctx, id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, Ok(batch))
	case "unrestrict":
		batch, err := h.advisor.Unrestrict(ctx, id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, Ok(batch))
	default:
		h.writeJSON(w, http.StatusNotFound, Fail(fmt.Sprintf("unknown batch action: %s", action)))
	}
}

// ============================================
// 仓区与指标
// ============================================

// ListZones GET /api/v1/zones
func (h *AdvisorHandler) ListZones(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, Ok(h.advisor.Zones()))
}

// GetMetrics GET /api/v1/metrics
func (h *AdvisorHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, Ok(h.advisor.Metrics()))
}

// ============================================
// 建议
// ============================================

// ListRecommendations GET /api/v1/recommendations
func (h *AdvisorHandler) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, Ok(h.advisor.Recommendations()))
}

// RecommendationAction POST /api/v1/recommendations/{id}/{action}
func (h *AdvisorHandler) RecommendationAction(w http.ResponseWriter, r *http.Request, id, action string) {
	ctx := r.Context()

	switch action {
	case "approve":
		rec, err := h.advisor.Approve(ctx, id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, Ok(rec))
	case "ignore":
		rec, err := h.advisor.Ignore(ctx, id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, Ok(rec))
	default:
		h.writeJSON(w, http.StatusNotFound, Fail(fmt.Sprintf("unknown recommendation action: %s", action)))
	}
}

// ============================================
// 模拟
// ============================================

// triggerResponse 模拟触发响应
type triggerResponse struct {
	Triggered       bool                    `json:"triggered"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

// TriggerSimulation POST /api/v1/simulation/trigger
func (h *AdvisorHandler) TriggerSimulation(w http.ResponseWriter, r *http.Request) {
	triggered, raised, err := h.advisor.TriggerCriticalEvent(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if raised == nil {
		raised = []models.Recommendation{}
	}
	h.writeJSON(w, http.StatusOK, Ok(triggerResponse{Triggered: triggered, Recommendations: raised}))
}

// ============================================
// 导出
// ============================================

// ExportInventory GET /api/v1/inventory/export
func (h *AdvisorHandler) ExportInventory(w http.ResponseWriter, r *http.Request) {
	data, err := GenerateInventoryExport(h.advisor.Batches())
	if err != nil {
		h.logger.Error("Failed to generate inventory export", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	filename := fmt.Sprintf("inventory_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
