package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fluently-backend/internal/models"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type UsageRepo struct {
	db Querier
}

func NewUsageRepo(db Querier) *UsageRepo {
	return &UsageRepo{db: db}
}

func (r *UsageRepo) Insert(ctx context.Context, u *models.ChatUsage) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO chat_usage (id, mode, message_count, status, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, u.ID, u.Mode, u.MessageCount, u.Status, u.DurationMs, u.CreatedAt)
	return err
}

// SummarySince aggregates request and failure counts per mode.
func (r *UsageRepo) SummarySince(ctx context.Context, since time.Time) ([]models.ModeUsage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT mode,
			COUNT(*) AS requests,
			COUNT(*) FILTER (WHERE status >= 400) AS failures
		FROM chat_usage
		WHERE created_at >= $1
		GROUP BY mode
		ORDER BY mode
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ModeUsage
	for rows.Next() {
		var m models.ModeUsage
		if err := rows.Scan(&m.Mode, &m.Requests, &m.Failures); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
