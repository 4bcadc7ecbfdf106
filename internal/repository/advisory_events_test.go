package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coldchain-advisor/internal/models"
)

func setupMockAdvisoryEventsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *AdvisoryEventsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewAdvisoryEventsRepository(db, logger)

	return db, mock, repo
}

// ============================================
// 基础操作测试
// ============================================

func TestCreateAdvisoryEvent_Success(t *testing.T) {
	db, mock, repo := setupMockAdvisoryEventsDB(t)
	defer db.Close()

	ctx := context.Background()
	eventID := uuid.New().String()
	batchID := "AF-290"
	zoneID := "C4"
	now := time.Now()

	event := &models.AdvisoryEvent{
		EventID:       eventID,
		RecID:         "REC-001",
		BatchID:       &batchID,
		ZoneID:        &zoneID,
		Target:        "Batch #AF-290 (Tomato)",
		Reason:        "87% Spoilage Risk predicted in Zone C4",
		Action:        "Dispatch Immediately",
		Priority:      "P1",
		Confidence:    96,
		PredictedLoss: 42500,
		Risk:          87,
		Status:        "pending",
		RaisedAt:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	mock.ExpectExec(`INSERT INTO advisory_events`).
		WithArgs(
			eventID, "REC-001", &batchID, &zoneID, "Batch #AF-290 (Tomato)",
			"87% Spoilage Risk predicted in Zone C4", "Dispatch Immediately", "P1",
			96, int64(42500), 87, "pending", now, nil, now, now,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateAdvisoryEvent(ctx, event)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAdvisoryEvent_MissingRecID(t *testing.T) {
	db, mock, repo := setupMockAdvisoryEventsDB(t)
	defer db.Close()

	err := repo.CreateAdvisoryEvent(context.Background(), &models.AdvisoryEvent{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rec_id is required")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAdvisoryStatus_Success(t *testing.T) {
	db, mock, repo := setupMockAdvisoryEventsDB(t)
	defer db.Close()

	decidedAt := time.Now()

	mock.ExpectExec(`UPDATE advisory_events`).
		WithArgs("approved", decidedAt, "REC-001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateAdvisoryStatus(context.Background(), "REC-001", "approved", decidedAt)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAdvisoryStatus_NotFound(t *testing.T) {
	db, mock, repo := setupMockAdvisoryEventsDB(t)
	defer db.Close()

	decidedAt := time.Now()

	mock.ExpectExec(`UPDATE advisory_events`).
		WithArgs("ignored", decidedAt, "REC-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateAdvisoryStatus(context.Background(), "REC-404", "ignored", decidedAt)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAdvisoryStatus_InvalidStatus(t *testing.T) {
	db, mock, repo := setupMockAdvisoryEventsDB(t)
	defer db.Close()

	err := repo.UpdateAdvisoryStatus(context.Background(), "REC-001", "escalated", time.Now())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAdvisoryEvent_Success(t *testing.T) {
	db, mock, repo := setupMockAdvisoryEventsDB(t)
	defer db.Close()

	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"event_id", "rec_id", "batch_id", "zone_id", "target",
		"reason", "action", "priority", "confidence", "predicted_loss",
		"risk", "status", "raised_at", "decided_at", "created_at", "updated_at",
	}).AddRow(
		uuid.New().String(), "REC-001", "AF-290", "C4", "Batch #AF-290 (Tomato)",
		"87% Spoilage Risk predicted in Zone C4", "Dispatch Immediately", "P1", 96, int64(42500),
		87, "pending", now, nil, now, now,
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs("REC-001").
		WillReturnRows(rows)

	event, err := repo.GetAdvisoryEvent(context.Background(), "REC-001")

	require.NoError(t, err)
	assert.Equal(t, "REC-001", event.RecID)
	require.NotNil(t, event.BatchID)
	assert.Equal(t, "AF-290", *event.BatchID)
	assert.Equal(t, "P1", event.Priority)
	assert.Nil(t, event.DecidedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAdvisoryEvent_NotFound(t *testing.T) {
	db, mock, repo := setupMockAdvisoryEventsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("REC-404").
		WillReturnError(sql.ErrNoRows)

	event, err := repo.GetAdvisoryEvent(context.Background(), "REC-404")

	assert.Error(t, err)
	assert.Nil(t, event)
	assert.Contains(t, err.Error(), "not found")

	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// 查询操作测试
// ============================================

func TestListAdvisoryEvents_Success(t *testing.T) {
	db, mock, repo := setupMockAdvisoryEventsDB(t)
	defer db.Close()

	now := time.Now()

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(2)
	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(countRows)

	listRows := sqlmock.NewRows([]string{
		"event_id", "rec_id", "batch_id", "zone_id", "target",
		"reason", "action", "priority", "confidence", "predicted_loss",
		"risk", "status", "raised_at", "decided_at", "created_at", "updated_at",
	}).
		AddRow(uuid.New().String(), "REC-001", "AF-290", "C4", "Batch #AF-290 (Tomato)",
			"87% Spoilage Risk predicted in Zone C4", "Dispatch Immediately", "P1", 96, int64(42500),
			87, "pending", now, nil, now, now).
		AddRow(uuid.New().String(), "REC-002", nil, "A2", "Zone A-2",
			"Humidity anomaly detected (78%)", "Reduce Temp by 2°C", "P2", 92, int64(12000),
			55, "pending", now, nil, now, now)

	mock.ExpectQuery(`SELECT`).
		WithArgs(20, 0).
		WillReturnRows(listRows)

	events, total, err := repo.ListAdvisoryEvents(context.Background(), AdvisoryEventFilters{}, 1, 20)

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, events, 2)
	assert.Equal(t, "REC-001", events[0].RecID)
	assert.Nil(t, events[1].BatchID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAdvisoryEvents_WithFilters(t *testing.T) {
	db, mock, repo := setupMockAdvisoryEventsDB(t)
	defer db.Close()

	now := time.Now()
	zoneID := "C4"
	status := "approved"

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(zoneID, status).
		WillReturnRows(countRows)

	listRows := sqlmock.NewRows([]string{
		"event_id", "rec_id", "batch_id", "zone_id", "target",
		"reason", "action", "priority", "confidence", "predicted_loss",
		"risk", "status", "raised_at", "decided_at", "created_at", "updated_at",
	}).
		AddRow(uuid.New().String(), "REC-001", "AF-290", zoneID, "Batch #AF-290 (Tomato)",
			"87% Spoilage Risk predicted in Zone C4", "Dispatch Immediately", "P1", 96, int64(42500),
			87, status, now, now, now, now)

	mock.ExpectQuery(`SELECT`).
		WithArgs(zoneID, status, 20, 0).
		WillReturnRows(listRows)

	filters := AdvisoryEventFilters{ZoneID: &zoneID, Status: &status}
	events, total, err := repo.ListAdvisoryEvents(context.Background(), filters, 1, 20)

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, events, 1)
	assert.Equal(t, "approved", events[0].Status)
	require.NotNil(t, events[0].DecidedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAdvisoryEvents_Success(t *testing.T) {
	db, mock, repo := setupMockAdvisoryEventsDB(t)
	defer db.Close()

	priority := "P1"

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(4)
	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(priority).
		WillReturnRows(countRows)

	count, err := repo.CountAdvisoryEvents(context.Background(), AdvisoryEventFilters{Priority: &priority})

	require.NoError(t, err)
	assert.Equal(t, 4, count)

	require.NoError(t, mock.ExpectationsWereMet())
}
