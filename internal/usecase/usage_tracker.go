package usecase

import (
	"context"
	"time"

	"flightwatch-service/internal/domain/repository"
	"flightwatch-service/pkg/logger"
)

// Usage is the ledger snapshot handed to display code
type Usage struct {
	Used      int
	Limit     int
	Remaining int
}

// UsageTracker gates all primary-provider calls against the monthly quota.
// A small reserve is withheld from background polling so a live user action
// is never starved; background polling additionally self-throttles once the
// remaining budget drops under the polling floor.
type UsageTracker struct {
	usageRepo    repository.UsageRepository
	logger       logger.Logger
	quota        int
	reserve      int
	pollingFloor float64
	now          func() time.Time
}

// NewUsageTracker creates a new usage tracker. pollingFloor is the fraction
// of quota that must remain for background polling to stay enabled.
func NewUsageTracker(usageRepo repository.UsageRepository, quota, reserve int, pollingFloor float64, logger logger.Logger) *UsageTracker {
	return &UsageTracker{
		usageRepo:    usageRepo,
		logger:       logger,
		quota:        quota,
		reserve:      reserve,
		pollingFloor: pollingFloor,
		now:          time.Now,
	}
}

const monthKeyLayout = "2006-01"

func (t *UsageTracker) monthKey() string {
	return t.now().UTC().Format(monthKeyLayout)
}

// GetUsage returns the current month's consumption. A new month reads as a
// fresh zero row.
func (t *UsageTracker) GetUsage(ctx context.Context) (Usage, error) {
	entry, err := t.usageRepo.GetOrCreate(ctx, t.monthKey())
	if err != nil {
		return Usage{}, err
	}

	remaining := t.quota - entry.RequestCount
	if remaining < 0 {
		remaining = 0
	}
	return Usage{
		Used:      entry.RequestCount,
		Limit:     t.quota,
		Remaining: remaining,
	}, nil
}

// CanMakeRequest reports whether a primary call is allowed. Background
// callers must keep the reserve untouched; interactive callers pass
// allowReserve=true and may spend down to zero. Ledger read failures fail
// closed: no budget means no spend, never an error to the caller.
func (t *UsageTracker) CanMakeRequest(ctx context.Context, allowReserve bool) bool {
	usage, err := t.GetUsage(ctx)
	if err != nil {
		t.logger.Error("Failed to read usage ledger", "error", err)
		return false
	}

	if allowReserve {
		return usage.Remaining > 0
	}
	return usage.Remaining > t.reserve
}

// RecordRequest counts one consumed upstream call
func (t *UsageTracker) RecordRequest(ctx context.Context) error {
	month := t.monthKey()
	if _, err := t.usageRepo.GetOrCreate(ctx, month); err != nil {
		return err
	}
	return t.usageRepo.Increment(ctx, month, t.now())
}

// MarkLimitReached pins the month's count at the quota. Called when the
// upstream itself reports exhaustion, so the ledger self-corrects even if
// local accounting drifted low.
func (t *UsageTracker) MarkLimitReached(ctx context.Context) error {
	t.logger.Warn("Upstream reported quota exhausted, pinning ledger", "month", t.monthKey())
	return t.usageRepo.SetCount(ctx, t.monthKey(), t.quota)
}

// IsPollingEnabled reports whether background polling may run at all.
// Polling stops well before the hard ceiling so interactive refreshes keep
// working until the reserve is truly gone.
func (t *UsageTracker) IsPollingEnabled(ctx context.Context) bool {
	usage, err := t.GetUsage(ctx)
	if err != nil {
		t.logger.Error("Failed to read usage ledger", "error", err)
		return false
	}
	return float64(usage.Remaining) > t.pollingFloor*float64(t.quota)
}
