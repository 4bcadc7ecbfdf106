package evaluator

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"coldchain-advisor/internal/models"
)

// scorerRequest 外部评分服务请求体
type scorerRequest struct {
	BatchID     string  `json:"batchId"`
	Produce     string  `json:"produce"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	StorageDays int     `json:"storage_days"`
}

// scorerResponse 外部评分服务响应体
type scorerResponse struct {
	SpoilageRisk      string  `json:"spoilage_risk"`
	RemainingDays     int     `json:"remaining_days"`
	Priority          string  `json:"priority"`
	RecommendedAction string  `json:"recommended_action"`
	Confidence        float64 `json:"confidence"`
}

// ScorerClient 外部评分服务客户端
// 任何传输错误、非成功状态或非法响应都回退到本地确定性规则，绝不向调用方传播失败
type ScorerClient struct {
	httpClient *resty.Client
	fallback   *RiskModel
	logger     *zap.Logger
	enabled    bool
}

// NewScorerClient 创建评分客户端
// baseURL 为空表示禁用外部评分，所有请求直接走本地规则
func NewScorerClient(baseURL string, timeout time.Duration, retryCount int, fallback *RiskModel, logger *zap.Logger) *ScorerClient {
	c := &ScorerClient{
		fallback: fallback,
		logger:   logger,
		enabled:  baseURL != "",
	}

	if c.enabled {
		c.httpClient = resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(retryCount).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json")
	}

	return c
}

// Analyze 评估批次，优先调用外部评分服务，失败时回退本地规则
func (c *ScorerClient) Analyze(ctx context.Context, batchID string, in Snapshot) models.Assessment {
	if !c.enabled {
		return c.fallback.Evaluate(in)
	}

	request := scorerRequest{
		BatchID:     batchID,
		Produce:     in.Product,
		Temperature: in.Temperature,
		Humidity:    in.Humidity,
		StorageDays: in.StorageDays,
	}

	var response scorerResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/analyze")

	if err != nil {
		c.logger.Warn("Scorer call failed, using fallback rule",
			zap.String("batch_id", batchID),
			zap.Error(err),
		)
		return c.fallback.Evaluate(in)
	}

	if resp.StatusCode() != 200 {
		c.logger.Warn("Scorer returned non-success status, using fallback rule",
			zap.String("batch_id", batchID),
			zap.Int("status_code", resp.StatusCode()),
		)
		return c.fallback.Evaluate(in)
	}

	assessment, ok := convertScorerResponse(response)
	if !ok {
		c.logger.Warn("Scorer returned invalid assessment, using fallback rule",
			zap.String("batch_id", batchID),
			zap.String("spoilage_risk", response.SpoilageRisk),
			zap.String("priority", response.Priority),
		)
		return c.fallback.Evaluate(in)
	}

	c.logger.Debug("Scorer assessment received",
		zap.String("batch_id", batchID),
		zap.String("risk_tier", string(assessment.RiskTier)),
		zap.String("priority", string(assessment.Priority)),
	)

	return assessment
}

// convertScorerResponse 校验并转换外部响应
// 历史版本的评分服务用 "Moderate" 表示中等风险，这里做归一化
func convertScorerResponse(r scorerResponse) (models.Assessment, bool) {
	var tier models.RiskTier
	switch r.SpoilageRisk {
	case "Low":
		tier = models.RiskLow
	case "Medium", "Moderate":
		tier = models.RiskMedium
	case "High":
		tier = models.RiskHigh
	default:
		return models.Assessment{}, false
	}

	var priority models.Priority
	switch r.Priority {
	case "P1":
		priority = models.PriorityP1
	case "P2":
		priority = models.PriorityP2
	case "P3":
		priority = models.PriorityP3
	default:
		return models.Assessment{}, false
	}

	if r.Confidence < 0 || r.Confidence > 1 {
		return models.Assessment{}, false
	}

	return models.Assessment{
		RiskTier:          tier,
		RemainingDays:     r.RemainingDays,
		Priority:          priority,
		RecommendedAction: r.RecommendedAction,
		Confidence:        r.Confidence,
		Source:            models.AssessmentSourceModel,
	}, true
}
