package usecase

import (
	"context"
	"time"

	"flightwatch-service/internal/domain/repository"
	"flightwatch-service/pkg/logger"
	"flightwatch-service/pkg/metrics"
)

// CleanerConfig tunes the lifecycle cleanup loop
type CleanerConfig struct {
	WakeInterval time.Duration
	GraceWindow  time.Duration
	Retention    time.Duration
}

// DefaultCleanerConfig returns the standard cleanup windows
func DefaultCleanerConfig() CleanerConfig {
	return CleanerConfig{
		WakeInterval: time.Hour,
		GraceWindow:  24 * time.Hour,
		Retention:    7 * 24 * time.Hour,
	}
}

// Cleaner deactivates flights whose relevance window has passed and hard
// deletes flights past the retention window, cascading their subscriptions
// and change records. Both operations are batched at the store.
type Cleaner struct {
	flightRepo repository.FlightRepository
	logger     logger.Logger
	metrics    *metrics.Metrics
	config     CleanerConfig
	now        func() time.Time
}

// NewCleaner creates a new lifecycle cleaner
func NewCleaner(flightRepo repository.FlightRepository, logger logger.Logger, m *metrics.Metrics, config CleanerConfig) *Cleaner {
	return &Cleaner{
		flightRepo: flightRepo,
		logger:     logger,
		metrics:    m,
		config:     config,
		now:        time.Now,
	}
}

// Run wakes on a slow fixed interval until the context is cancelled
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.config.WakeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Cleaner stopped")
			return
		case <-ticker.C:
			c.CleanOnce(ctx)
		}
	}
}

// CleanOnce runs one deactivation and retention pass
func (c *Cleaner) CleanOnce(ctx context.Context) {
	now := c.now()

	deactivated, err := c.flightRepo.DeactivateTerminalBefore(ctx, now.Add(-c.config.GraceWindow))
	if err != nil {
		c.logger.Error("Failed to deactivate stale flights", "error", err)
		c.metrics.ErrorsCount.WithLabelValues("cleanup_deactivate").Inc()
	} else if deactivated > 0 {
		c.logger.Info("Deactivated stale flights", "count", deactivated)
	}

	deleted, err := c.flightRepo.DeleteOlderThan(ctx, now.Add(-c.config.Retention))
	if err != nil {
		c.logger.Error("Failed to delete retained flights", "error", err)
		c.metrics.ErrorsCount.WithLabelValues("cleanup_delete").Inc()
	} else if deleted > 0 {
		c.logger.Info("Deleted flights past retention", "count", deleted)
	}
}
