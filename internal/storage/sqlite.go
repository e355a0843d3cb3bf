package storage

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shohag/linegemini/internal/models"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS invocations (
			id TEXT PRIMARY KEY,
			webhook_event_id TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			event_count INTEGER NOT NULL DEFAULT 0,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_created ON invocations(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_outcome ON invocations(outcome)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- Invocations ---

func (s *SQLiteStorage) RecordInvocation(ctx context.Context, inv *models.Invocation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invocations (id, webhook_event_id, outcome, event_count, latency_ms, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.WebhookEventID, string(inv.Outcome), inv.EventCount, inv.LatencyMs, inv.CreatedAt.UTC(),
	)
	return err
}

func (s *SQLiteStorage) ListInvocations(ctx context.Context, limit int) ([]models.Invocation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, webhook_event_id, outcome, event_count, latency_ms, created_at
		 FROM invocations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []models.Invocation
	for rows.Next() {
		var inv models.Invocation
		var outcome string
		if err := rows.Scan(&inv.ID, &inv.WebhookEventID, &outcome, &inv.EventCount, &inv.LatencyMs, &inv.CreatedAt); err != nil {
			return nil, err
		}
		inv.Outcome = models.Outcome(outcome)
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

func (s *SQLiteStorage) PurgeInvocations(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invocations WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Stats ---

func (s *SQLiteStorage) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM invocations GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		stats.TotalInvocations += n
		switch models.Outcome(outcome) {
		case models.OutcomeReplied:
			stats.RepliedCount = n
		case models.OutcomeIgnored:
			stats.IgnoredCount = n
		case models.OutcomeRejected:
			stats.RejectedCount = n
		case models.OutcomeReplyFailed:
			stats.ReplyFailedCount = n
		case models.OutcomeGenerationFailed:
			stats.GenFailedCount = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, `SELECT AVG(latency_ms) FROM invocations`).Scan(&avg); err != nil {
		return nil, err
	}
	stats.AvgLatencyMs = avg.Float64

	attempted := stats.RepliedCount + stats.ReplyFailedCount + stats.GenFailedCount
	if attempted > 0 {
		stats.SuccessRate = float64(stats.RepliedCount) / float64(attempted) * 100
	}

	return stats, nil
}
