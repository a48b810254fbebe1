package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flightwatch-service/internal/domain/entity"
	"flightwatch-service/internal/domain/repository"
	"flightwatch-service/pkg/flightstatus"
	"flightwatch-service/pkg/logger"
)

// TrackResult is the outcome of a track request. Exactly one of the three
// shapes holds: a tracked flight, an empty candidate list (nothing matched,
// not an error), or several candidates the user must disambiguate between.
type TrackResult struct {
	Flight     *entity.TrackedFlight
	Candidates []entity.FlightCandidate
	NotFound   bool
}

// TrackerService is the stable entry surface the chat layer consumes:
// registering flights, on-demand refresh, and usage display.
type TrackerService struct {
	flightRepo repository.FlightRepository
	subRepo    repository.SubscriptionRepository
	usage      *UsageTracker
	primary    repository.PrimaryFlightProvider
	reconciler flightReconciler
	logger     logger.Logger
	now        func() time.Time
}

// NewTrackerService creates a new tracker service
func NewTrackerService(
	flightRepo repository.FlightRepository,
	subRepo repository.SubscriptionRepository,
	usage *UsageTracker,
	primary repository.PrimaryFlightProvider,
	reconciler flightReconciler,
	logger logger.Logger,
) *TrackerService {
	return &TrackerService{
		flightRepo: flightRepo,
		subRepo:    subRepo,
		usage:      usage,
		primary:    primary,
		reconciler: reconciler,
		logger:     logger,
		now:        time.Now,
	}
}

// Track registers a subscriber's interest in a flight on a date. The first
// lookup is user-initiated and may spend from the reserve budget. When a
// designator resolves to several distinct routes the candidates are handed
// back for disambiguation instead of guessing.
func (s *TrackerService) Track(ctx context.Context, subscriberKey, carrier, number, flightDate string) (*TrackResult, error) {
	existing, err := s.flightRepo.GetByDesignatorAndDate(ctx, carrier, number, flightDate)
	if err != nil {
		return nil, fmt.Errorf("failed to look up tracked flight: %w", err)
	}

	if existing != nil {
		if !existing.Active && !flightstatus.IsTerminal(existing.Status) {
			existing.Active = true
			if err := s.flightRepo.Update(ctx, existing); err != nil {
				return nil, fmt.Errorf("failed to reactivate flight: %w", err)
			}
		}
		if err := s.subscribe(ctx, subscriberKey, existing.ID); err != nil {
			return nil, err
		}
		return &TrackResult{Flight: existing}, nil
	}

	if !s.usage.CanMakeRequest(ctx, true) {
		s.logger.Warn("Track request denied by budget", "designator", carrier+number)
		return &TrackResult{NotFound: true}, nil
	}

	candidates, err := s.primary.LookupByDesignator(ctx, carrier, number, flightDate)
	if err != nil {
		if errors.Is(err, repository.ErrQuotaExhausted) {
			s.logger.Warn("Track lookup hit provider quota", "designator", carrier+number)
			return &TrackResult{NotFound: true}, nil
		}
		return nil, fmt.Errorf("primary lookup failed: %w", err)
	}

	if len(candidates) == 0 {
		return &TrackResult{NotFound: true}, nil
	}
	if ambiguous(candidates) {
		return &TrackResult{Candidates: candidates}, nil
	}

	flight := flightFromCandidate(&candidates[0], carrier, number, flightDate, s.now())
	if err := s.flightRepo.Upsert(ctx, flight); err != nil {
		return nil, fmt.Errorf("failed to create tracked flight: %w", err)
	}
	if err := s.subscribe(ctx, subscriberKey, flight.ID); err != nil {
		return nil, err
	}

	s.logger.Info("Flight tracked", "designator", flight.Designator(), "date", flightDate, "subscriber", subscriberKey)
	return &TrackResult{Flight: flight}, nil
}

// TrackCandidate registers a flight from a previously returned candidate,
// after the user picked one of several routes.
func (s *TrackerService) TrackCandidate(ctx context.Context, subscriberKey string, cand *entity.FlightCandidate, flightDate string) (*entity.TrackedFlight, error) {
	flight := flightFromCandidate(cand, cand.Carrier, cand.Number, flightDate, s.now())
	if err := s.flightRepo.Upsert(ctx, flight); err != nil {
		return nil, fmt.Errorf("failed to create tracked flight: %w", err)
	}
	if err := s.subscribe(ctx, subscriberKey, flight.ID); err != nil {
		return nil, err
	}
	return flight, nil
}

// Untrack removes one subscriber's interest. The flight is deactivated when
// its last subscription disappears.
func (s *TrackerService) Untrack(ctx context.Context, subscriberKey, carrier, number, flightDate string) error {
	flight, err := s.flightRepo.GetByDesignatorAndDate(ctx, carrier, number, flightDate)
	if err != nil {
		return fmt.Errorf("failed to look up tracked flight: %w", err)
	}
	if flight == nil {
		return nil
	}

	if err := s.subRepo.Delete(ctx, subscriberKey, flight.ID); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	remaining, err := s.subRepo.CountByFlight(ctx, flight.ID)
	if err != nil {
		return fmt.Errorf("failed to count subscriptions: %w", err)
	}
	if remaining == 0 {
		if err := s.flightRepo.Deactivate(ctx, flight.ID); err != nil {
			return fmt.Errorf("failed to deactivate flight: %w", err)
		}
		s.logger.Info("Flight deactivated, no subscribers left", "designator", flight.Designator())
	}
	return nil
}

// Refresh runs an on-demand reconciliation with the relaxed staleness
// threshold and reserve permission of a live user action.
func (s *TrackerService) Refresh(ctx context.Context, flightID uint) (*ReconcileResult, error) {
	return s.reconciler.Reconcile(ctx, flightID, ReconcileOptions{
		AllowReserve: true,
		StaleAfter:   0,
	})
}

// GetUsage exposes the ledger for display
func (s *TrackerService) GetUsage(ctx context.Context) (Usage, error) {
	return s.usage.GetUsage(ctx)
}

func (s *TrackerService) subscribe(ctx context.Context, subscriberKey string, flightID uint) error {
	err := s.subRepo.Insert(ctx, &entity.Subscription{
		SubscriberKey: subscriberKey,
		FlightID:      flightID,
	})
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// ambiguous reports whether candidates span more than one distinct route
func ambiguous(candidates []entity.FlightCandidate) bool {
	if len(candidates) < 2 {
		return false
	}
	first := candidates[0].Origin + "-" + candidates[0].Destination
	for _, c := range candidates[1:] {
		if c.Origin+"-"+c.Destination != first {
			return true
		}
	}
	return false
}

func flightFromCandidate(cand *entity.FlightCandidate, carrier, number, flightDate string, now time.Time) *entity.TrackedFlight {
	status := flightstatus.StatusScheduled
	if raw, ok := flightstatus.Normalize(cand.Status); ok {
		status = flightstatus.NormalizeOperational(raw, cand.ScheduledDeparture, flightDate, now, cand.FlightDate)
	}

	return &entity.TrackedFlight{
		Carrier:            carrier,
		Number:             number,
		FlightDate:         flightDate,
		Origin:             cand.Origin,
		Destination:        cand.Destination,
		ScheduledDeparture: cand.ScheduledDeparture,
		ScheduledArrival:   cand.ScheduledArrival,
		Status:             status,
		DelayMinutes:       candidateDelay(cand),
		Active:             !flightstatus.IsTerminal(status),
	}
}
