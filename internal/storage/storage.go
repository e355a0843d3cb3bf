package storage

import (
	"context"
	"time"

	"github.com/shohag/linegemini/internal/models"
)

type Storage interface {
	// Invocations
	RecordInvocation(ctx context.Context, inv *models.Invocation) error
	ListInvocations(ctx context.Context, limit int) ([]models.Invocation, error)
	PurgeInvocations(ctx context.Context, before time.Time) (int64, error)

	// Stats
	GetStats(ctx context.Context) (*Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

type Stats struct {
	TotalInvocations int64   `json:"total_invocations"`
	RepliedCount     int64   `json:"replied_count"`
	IgnoredCount     int64   `json:"ignored_count"`
	RejectedCount    int64   `json:"rejected_count"`
	ReplyFailedCount int64   `json:"reply_failed_count"`
	GenFailedCount   int64   `json:"generation_failed_count"`
	SuccessRate      float64 `json:"success_rate"`
	AvgLatencyMs     float64 `json:"avg_latency_ms"`
}

// Nop discards everything. It backs the "none" storage driver.
type Nop struct{}

func (Nop) RecordInvocation(context.Context, *models.Invocation) error { return nil }

func (Nop) ListInvocations(context.Context, int) ([]models.Invocation, error) { return nil, nil }

func (Nop) PurgeInvocations(context.Context, time.Time) (int64, error) { return 0, nil }

func (Nop) GetStats(context.Context) (*Stats, error) { return &Stats{}, nil }

func (Nop) Migrate(context.Context) error { return nil }

func (Nop) Close() error { return nil }
