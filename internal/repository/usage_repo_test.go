package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"

	"fluently-backend/internal/models"
)

func TestUsageRepo_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	defer mock.Close()

	u := &models.ChatUsage{
		ID:           uuid.New(),
		Mode:         "tutor",
		MessageCount: 3,
		Status:       200,
		DurationMs:   1200,
		CreatedAt:    time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO chat_usage").
		WithArgs(u.ID, "tutor", 3, 200, int64(1200), u.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := NewUsageRepo(mock).Insert(context.Background(), u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUsageRepo_SummarySince(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	defer mock.Close()

	since := time.Date(2026, 10, 8, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT mode").
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"mode", "requests", "failures"}).
			AddRow("feedback", 4, 0).
			AddRow("tutor", 10, 2))

	got, err := NewUsageRepo(mock).SummarySince(context.Background(), since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(got))
	}
	if got[1] != (models.ModeUsage{Mode: "tutor", Requests: 10, Failures: 2}) {
		t.Errorf("unexpected row %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUsageRepo_SummarySince_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	defer mock.Close()

	boom := errors.New("relation does not exist")
	mock.ExpectQuery("SELECT mode").WillReturnError(boom)

	if _, err := NewUsageRepo(mock).SummarySince(context.Background(), time.Now()); !errors.Is(err, boom) {
		t.Fatalf("Expected query error, got %v", err)
	}
}
