package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"coldchain-advisor/internal/models"
)

// AdvisoryEventsRepository 调度建议审计仓库
// 内存队列是建议状态的权威来源，这里只做 append-heavy 的审计落库
type AdvisoryEventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdvisoryEventsRepository 创建调度建议审计仓库
func NewAdvisoryEventsRepository(db *sql.DB, logger *zap.Logger) *AdvisoryEventsRepository {
	return &AdvisoryEventsRepository{
		db:     db,
		logger: logger,
	}
}

// AdvisoryEventFilters 审计记录过滤条件
type AdvisoryEventFilters struct {
	// 时间段过滤
	StartTime *time.Time // 开始时间（raised_at >= StartTime）
	EndTime   *time.Time // 结束时间（raised_at <= EndTime）

	// 关联对象过滤
	BatchID *string
	ZoneID  *string

	// 状态与优先级过滤
	Status   *string
	Statuses []string // 状态列表（IN 查询）
	Priority *string
}

// ============================================
// 基础操作
// ============================================

// CreateAdvisoryEvent 记录一条建议生成事件
func (r *AdvisoryEventsRepository) CreateAdvisoryEvent(ctx context.Context, event *models.AdvisoryEvent) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	if event.RecID == "" {
		return fmt.Errorf("rec_id is required")
	}

	query := `
		INSERT INTO advisory_events (
			event_id,
			rec_id,
			batch_id,
			zone_id,
			target,
			reason,
			action,
			priority,
			confidence,
			predicted_loss,
			risk,
			status,
			raised_at,
			decided_at,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		event.EventID,
		event.RecID,
		event.BatchID,
		event.ZoneID,
		event.Target,
		event.Reason,
		event.Action,
		event.Priority,
		event.Confidence,
		event.PredictedLoss,
		event.Risk,
		event.Status,
		event.RaisedAt,
		event.DecidedAt,
		event.CreatedAt,
		event.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create advisory event: %w", err)
	}

	return nil
}

// UpdateAdvisoryStatus 更新建议的决策状态（approved/ignored）
func (r *AdvisoryEventsRepository) UpdateAdvisoryStatus(ctx context.Context, recID, status string, decidedAt time.Time) error {
	if recID == "" {
		return fmt.Errorf("rec_id is required")
	}
	if status == "" {
		return fmt.Errorf("status is required")
	}

	// 验证 status 值
	validStatuses := map[string]bool{
		"pending":  true,
		"approved": true,
		"ignored":  true,
	}
	if !validStatuses[status] {
		return fmt.Errorf("invalid status: %s", status)
	}

	query := `
		UPDATE advisory_events
		SET status = $1,
		    decided_at = $2,
		    updated_at = CURRENT_TIMESTAMP
		WHERE rec_id = $3
	`

	result, err := r.db.ExecContext(ctx, query, status, decidedAt, recID)
	if err != nil {
		return fmt.Errorf("failed to update advisory status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("advisory event not found: rec_id=%s", recID)
	}

	return nil
}

// GetAdvisoryEvent 根据 rec_id 获取单条审计记录
func (r *AdvisoryEventsRepository) GetAdvisoryEvent(ctx context.Context, recID string) (*models.AdvisoryEvent, error) {
	if recID == "" {
		return nil, fmt.Errorf("rec_id is required")
	}

	query := `
		SELECT
			event_id,
			rec_id,
			batch_id,
			zone_id,
			target,
			reason,
			action,
			priority,
			confidence,
			predicted_loss,
			risk,
			status,
			raised_at,
			decided_at,
			created_at,
			updated_at
		FROM advisory_events
		WHERE rec_id = $1
	`

	event, err := r.scanEvent(r.db.QueryRowContext(ctx, query, recID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("advisory event not found: rec_id=%s", recID)
		}
		return nil, fmt.Errorf("failed to get advisory event: %w", err)
	}

	return event, nil
}

// ============================================
// 查询操作
// ============================================

// buildWhereClause 构建 WHERE 子句
func (r *AdvisoryEventsRepository) buildWhereClause(filters AdvisoryEventFilters, args *[]interface{}, argN *int) []string {
	where := []string{}

	// 时间段过滤
	if filters.StartTime != nil {
		where = append(where, fmt.Sprintf("raised_at >= $%d", *argN))
		*args = append(*args, *filters.StartTime)
		*argN++
	}
	if filters.EndTime != nil {
		where = append(where, fmt.Sprintf("raised_at <= $%d", *argN))
		*args = append(*args, *filters.EndTime)
		*argN++
	}

	// 关联对象过滤
	if filters.BatchID != nil {
		where = append(where, fmt.Sprintf("batch_id = $%d", *argN))
		*args = append(*args, *filters.BatchID)
		*argN++
	}
	if filters.ZoneID != nil {
		where = append(where, fmt.Sprintf("zone_id = $%d", *argN))
		*args = append(*args, *filters.ZoneID)
		*argN++
	}

	// 状态过滤
	if filters.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", *argN))
		*args = append(*args, *filters.Status)
		*argN++
	}
	if len(filters.Statuses) > 0 {
		placeholders := make([]string, len(filters.Statuses))
		for i := range filters.Statuses {
			placeholders[i] = fmt.Sprintf("$%d", *argN)
			*args = append(*args, filters.Statuses[i])
			*argN++
		}
		where = append(where, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	// 优先级过滤
	if filters.Priority != nil {
		where = append(where, fmt.Sprintf("priority = $%d", *argN))
		*args = append(*args, *filters.Priority)
		*argN++
	}

	return where
}

// ListAdvisoryEvents 列表查询（支持多条件过滤、分页，按 raised_at 倒序）
func (r *AdvisoryEventsRepository) ListAdvisoryEvents(ctx context.Context, filters AdvisoryEventFilters, page, size int) ([]*models.AdvisoryEvent, int, error) {
	args := []interface{}{}
	argN := 1
	where := r.buildWhereClause(filters, &args, &argN)

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	// 计算总数
	queryCount := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM advisory_events
		%s
	`, whereClause)

	var total int
	err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count advisory events: %w", err)
	}

	// 分页处理
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`
		SELECT
			event_id,
			rec_id,
			batch_id,
			zone_id,
			target,
			reason,
			action,
			priority,
			confidence,
			predicted_loss,
			risk,
			status,
			raised_at,
			decided_at,
			created_at,
			updated_at
		FROM advisory_events
		%s
		ORDER BY raised_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, len(args)+1, len(args)+2)

	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query advisory events: %w", err)
	}
	defer rows.Close()

	events := []*models.AdvisoryEvent{}
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan advisory event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate advisory events: %w", err)
	}

	return events, total, nil
}

// CountAdvisoryEvents 统计审计记录数量（按条件）
func (r *AdvisoryEventsRepository) CountAdvisoryEvents(ctx context.Context, filters AdvisoryEventFilters) (int, error) {
	args := []interface{}{}
	argN := 1
	where := r.buildWhereClause(filters, &args, &argN)

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM advisory_events
		%s
	`, whereClause)

	var total int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count advisory events: %w", err)
	}

	return total, nil
}

// scanner 兼容 QueryRow 和 Rows 的扫描接口
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEvent 扫描一行审计记录
func (r *AdvisoryEventsRepository) scanEvent(row scanner) (*models.AdvisoryEvent, error) {
	var event models.AdvisoryEvent
	var batchID, zoneID sql.NullString
	var decidedAt sql.NullTime

	err := row.Scan(
		&event.EventID,
		&event.RecID,
		&batchID,
		&zoneID,
		&event.Target,
		&event.Reason,
		&event.Action,
		&event.Priority,
		&event.Confidence,
		&event.PredictedLoss,
		&event.Risk,
		&event.Status,
		&event.RaisedAt,
		&decidedAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// 处理可空字段
	if batchID.Valid {
		event.BatchID = &batchID.String
	}
	if zoneID.Valid {
		event.ZoneID = &zoneID.String
	}
	if decidedAt.Valid {
		event.DecidedAt = &decidedAt.Time
	}

	return &event, nil
}
