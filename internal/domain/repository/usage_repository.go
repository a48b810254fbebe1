package repository

import (
	"context"
	"time"

	"flightwatch-service/internal/domain/entity"
)

// UsageRepository defines the interface for the monthly API usage ledger.
// GetOrCreate is conflict-safe: concurrent creators of the same month must
// not error or double-insert. Increment happens in place at the store so
// concurrent callers cannot lose counts.
type UsageRepository interface {
	GetOrCreate(ctx context.Context, month string) (*entity.UsageLedgerEntry, error)
	Increment(ctx context.Context, month string, at time.Time) error
	SetCount(ctx context.Context, month string, count int) error
}
