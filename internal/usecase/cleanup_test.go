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

// cleanupRepo records the cutoffs the cleaner asked for.
type cleanupRepo struct {
	*fakeFlightRepo
	deactivateCutoff time.Time
	deleteCutoff     time.Time
	deactivateErr    error
}

func (r *cleanupRepo) DeactivateTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.deactivateCutoff = cutoff
	return 2, r.deactivateErr
}

func (r *cleanupRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.deleteCutoff = cutoff
	return 1, nil
}

func TestCleanOnceAppliesConfiguredWindows(t *testing.T) {
	repo := &cleanupRepo{fakeFlightRepo: newFakeFlightRepo()}
	cleaner := NewCleaner(repo, logger.NewNop(), newTestMetrics(), DefaultCleanerConfig())

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cleaner.now = fixedClock(now)

	cleaner.CleanOnce(context.Background())

	assert.True(t, repo.deactivateCutoff.Equal(now.Add(-24*time.Hour)))
	assert.True(t, repo.deleteCutoff.Equal(now.Add(-7*24*time.Hour)))
}

func TestCleanOnceDeletionRunsDespiteDeactivationFailure(t *testing.T) {
	repo := &cleanupRepo{
		fakeFlightRepo: newFakeFlightRepo(),
		deactivateErr:  errors.New("store busy"),
	}
	cleaner := NewCleaner(repo, logger.NewNop(), newTestMetrics(), DefaultCleanerConfig())
	cleaner.now = fixedClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	cleaner.CleanOnce(context.Background())

	require.False(t, repo.deleteCutoff.IsZero(), "retention pass must still run")
}
