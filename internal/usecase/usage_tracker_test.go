package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightwatch-service/pkg/logger"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestUsageTracker(repo *fakeUsageRepo, quota, reserve int, floor float64) *UsageTracker {
	tracker := NewUsageTracker(repo, quota, reserve, floor, logger.NewNop())
	tracker.now = fixedClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	return tracker
}

func TestUsageTrackerReserveGating(t *testing.T) {
	repo := newFakeUsageRepo()
	repo.seed("2026-03", 96)
	tracker := newTestUsageTracker(repo, 100, 5, 0.3)

	ctx := context.Background()

	// 4 requests remain: inside the reserve, so only interactive callers
	// may spend.
	assert.False(t, tracker.CanMakeRequest(ctx, false))
	assert.True(t, tracker.CanMakeRequest(ctx, true))
}

func TestUsageTrackerHardCeiling(t *testing.T) {
	repo := newFakeUsageRepo()
	repo.seed("2026-03", 100)
	tracker := newTestUsageTracker(repo, 100, 5, 0.3)

	ctx := context.Background()
	assert.False(t, tracker.CanMakeRequest(ctx, false))
	assert.False(t, tracker.CanMakeRequest(ctx, true))

	usage, err := tracker.GetUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Remaining)
}

func TestUsageTrackerPollingFloor(t *testing.T) {
	repo := newFakeUsageRepo()
	tracker := newTestUsageTracker(repo, 100, 5, 0.3)
	ctx := context.Background()

	repo.seed("2026-03", 69)
	assert.True(t, tracker.IsPollingEnabled(ctx), "31 remaining is above the 30 floor")

	repo.seed("2026-03", 70)
	assert.False(t, tracker.IsPollingEnabled(ctx), "30 remaining is not strictly above the floor")
}

func TestUsageTrackerMonthRollover(t *testing.T) {
	repo := newFakeUsageRepo()
	repo.seed("2026-03", 100)
	tracker := newTestUsageTracker(repo, 100, 5, 0.3)
	ctx := context.Background()

	assert.False(t, tracker.CanMakeRequest(ctx, true))

	tracker.now = fixedClock(time.Date(2026, 4, 1, 0, 0, 1, 0, time.UTC))
	assert.True(t, tracker.CanMakeRequest(ctx, true))

	usage, err := tracker.GetUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Used)
	assert.Equal(t, 100, usage.Remaining)
}

func TestUsageTrackerRecordRequest(t *testing.T) {
	repo := newFakeUsageRepo()
	tracker := newTestUsageTracker(repo, 100, 5, 0.3)
	ctx := context.Background()

	require.NoError(t, tracker.RecordRequest(ctx))
	require.NoError(t, tracker.RecordRequest(ctx))

	usage, err := tracker.GetUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, usage.Used)
	assert.Equal(t, 98, usage.Remaining)
}

func TestUsageTrackerMarkLimitReached(t *testing.T) {
	repo := newFakeUsageRepo()
	repo.seed("2026-03", 12)
	tracker := newTestUsageTracker(repo, 100, 5, 0.3)
	ctx := context.Background()

	require.NoError(t, tracker.MarkLimitReached(ctx))

	usage, err := tracker.GetUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, usage.Used)
	assert.False(t, tracker.CanMakeRequest(ctx, true))
}

func TestUsageTrackerFailsClosed(t *testing.T) {
	repo := newFakeUsageRepo()
	repo.failGet = errors.New("ledger unavailable")
	tracker := newTestUsageTracker(repo, 100, 5, 0.3)
	ctx := context.Background()

	assert.False(t, tracker.CanMakeRequest(ctx, true))
	assert.False(t, tracker.IsPollingEnabled(ctx))
}
