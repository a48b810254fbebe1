package usecase

import (
	"context"
	"time"

	"flightwatch-service/internal/domain/repository"
	"flightwatch-service/pkg/flightstatus"
	"flightwatch-service/pkg/logger"
	"flightwatch-service/pkg/metrics"
	"flightwatch-service/templates"
)

// flightReconciler is the slice of the engine the poller drives.
type flightReconciler interface {
	Reconcile(ctx context.Context, flightID uint, opts ReconcileOptions) (*ReconcileResult, error)
}

// PollerConfig tunes the background polling loop. Poll frequency tightens as
// departure approaches: far-out flights wait FarInterval between polls,
// flights inside NearThreshold wait NearInterval, and flights inside
// ImminentThreshold wait ImminentInterval.
type PollerConfig struct {
	WakeInterval      time.Duration
	Lookahead         time.Duration
	FarInterval       time.Duration
	NearThreshold     time.Duration
	NearInterval      time.Duration
	ImminentThreshold time.Duration
	ImminentInterval  time.Duration
	FlightTimeout     time.Duration
}

// DefaultPollerConfig returns the standard tiering
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		WakeInterval:      time.Minute,
		Lookahead:         6 * time.Hour,
		FarInterval:       30 * time.Minute,
		NearThreshold:     2 * time.Hour,
		NearInterval:      10 * time.Minute,
		ImminentThreshold: 30 * time.Minute,
		ImminentInterval:  5 * time.Minute,
		FlightTimeout:     45 * time.Second,
	}
}

// Poller is the background loop that selects due flights and drives the
// reconciliation engine for each of them.
type Poller struct {
	flightRepo repository.FlightRepository
	subRepo    repository.SubscriptionRepository
	reconciler flightReconciler
	usage      *UsageTracker
	notifier   repository.Notifier
	logger     logger.Logger
	metrics    *metrics.Metrics
	config     PollerConfig
	now        func() time.Time
}

// NewPoller creates a new poll scheduler
func NewPoller(
	flightRepo repository.FlightRepository,
	subRepo repository.SubscriptionRepository,
	reconciler flightReconciler,
	usage *UsageTracker,
	notifier repository.Notifier,
	logger logger.Logger,
	m *metrics.Metrics,
	config PollerConfig,
) *Poller {
	return &Poller{
		flightRepo: flightRepo,
		subRepo:    subRepo,
		reconciler: reconciler,
		usage:      usage,
		notifier:   notifier,
		logger:     logger,
		metrics:    m,
		config:     config,
		now:        time.Now,
	}
}

// Run wakes on a fixed interval until the context is cancelled
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.config.WakeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Poller stopped")
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce runs one scheduling pass over all active flights
func (p *Poller) PollOnce(ctx context.Context) {
	if !p.usage.IsPollingEnabled(ctx) {
		p.logger.Debug("Background polling disabled by budget")
		return
	}

	flights, err := p.flightRepo.ListActive(ctx)
	if err != nil {
		p.logger.Error("Failed to list active flights", "error", err)
		p.metrics.ErrorsCount.WithLabelValues("poll_list").Inc()
		return
	}

	now := p.now()
	for _, flight := range flights {
		if flightstatus.IsTerminal(flight.Status) {
			continue
		}

		untilDeparture := flight.ScheduledDeparture.Sub(now)
		if untilDeparture > p.config.Lookahead {
			continue
		}

		interval := p.pollInterval(untilDeparture)
		if flight.LastPolledAt != nil && now.Sub(*flight.LastPolledAt) < interval {
			continue
		}

		p.pollFlight(ctx, flight.ID, interval)
	}
}

// pollFlight reconciles one flight under its own timeout so a stuck provider
// call cannot stall the rest of the cycle.
func (p *Poller) pollFlight(ctx context.Context, flightID uint, staleAfter time.Duration) {
	flightCtx, cancel := context.WithTimeout(ctx, p.config.FlightTimeout)
	defer cancel()

	p.metrics.FlightsPolled.Inc()
	res, err := p.reconciler.Reconcile(flightCtx, flightID, ReconcileOptions{
		AllowReserve: false,
		StaleAfter:   staleAfter,
		Lookahead:    p.config.Lookahead,
	})
	if err != nil {
		p.logger.Error("Reconciliation failed", "flightID", flightID, "error", err)
		p.metrics.ErrorsCount.WithLabelValues("reconcile").Inc()
		return
	}
	if res == nil || !res.Updated || len(res.ChangedFields) == 0 {
		return
	}

	p.notifySubscribers(ctx, res)
}

// notifySubscribers pushes a change message to every subscriber of the
// flight. Individual failures are logged and never abort the rest.
func (p *Poller) notifySubscribers(ctx context.Context, res *ReconcileResult) {
	subscribers, err := p.subRepo.ListSubscribers(ctx, res.Flight.ID)
	if err != nil {
		p.logger.Error("Failed to list subscribers", "flightID", res.Flight.ID, "error", err)
		p.metrics.ErrorsCount.WithLabelValues("subscribers_list").Inc()
		return
	}

	msg := templates.ChangeMessage(res.Flight, res.Change, res.ChangedFields)
	for _, key := range subscribers {
		if err := p.notifier.Send(ctx, key, msg); err != nil {
			p.logger.Warn("Notification failed", "subscriber", key, "flight", res.Flight.Designator(), "error", err)
			p.metrics.ErrorsCount.WithLabelValues("notify").Inc()
			continue
		}
		p.metrics.NotificationsSent.Inc()
	}
}

// pollInterval maps time-to-departure onto the tiered poll frequency
func (p *Poller) pollInterval(untilDeparture time.Duration) time.Duration {
	switch {
	case untilDeparture <= p.config.ImminentThreshold:
		return p.config.ImminentInterval
	case untilDeparture <= p.config.NearThreshold:
		return p.config.NearInterval
	default:
		return p.config.FarInterval
	}
}
