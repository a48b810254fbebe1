package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"flightwatch-service/internal/domain/entity"
	"flightwatch-service/internal/domain/repository"
	"flightwatch-service/pkg/flightstatus"
	"flightwatch-service/pkg/logger"
	"flightwatch-service/pkg/metrics"
)

// displayEstimateWindow bounds how far an estimated time may diverge from
// the scheduled one before it is discarded rather than displayed.
const displayEstimateWindow = 18 * time.Hour

// ReconcileOptions selects between background and on-demand behavior. The
// two paths run the same algorithm; they differ only in reserve permission
// and staleness threshold.
type ReconcileOptions struct {
	// AllowReserve lets the pass dip into the interactive reserve budget.
	AllowReserve bool
	// StaleAfter is the poll age beyond which a refresh is due. Zero means
	// any eligible refresh (the on-demand threshold).
	StaleAfter time.Duration
	// Lookahead, when positive, skips flights departing further out.
	Lookahead time.Duration
}

// ReconcileResult is the outcome of one reconciliation pass. Flight is a
// snapshot safe to render; on the degraded path it carries fallback-sourced
// display values that were never persisted.
type ReconcileResult struct {
	Flight             *entity.TrackedFlight
	Updated            bool
	Change             *entity.StatusChangeRecord
	ChangedFields      []string
	Degraded           bool
	EstimatedDeparture *time.Time
	EstimatedArrival   *time.Time
	Source             string
}

// Reconciler merges the stored flight state with primary and fallback
// provider answers into a single best-known status, under the rule that a
// known status never silently regresses to unknown.
type Reconciler struct {
	flightRepo repository.FlightRepository
	changeRepo repository.StatusChangeRepository
	usage      *UsageTracker
	primary    repository.PrimaryFlightProvider
	fallbacks  []repository.FallbackProvider
	logger     logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// NewReconciler creates a new reconciliation engine. Fallbacks are consulted
// strictly in slice order.
func NewReconciler(
	flightRepo repository.FlightRepository,
	changeRepo repository.StatusChangeRepository,
	usage *UsageTracker,
	primary repository.PrimaryFlightProvider,
	fallbacks []repository.FallbackProvider,
	logger logger.Logger,
	m *metrics.Metrics,
) *Reconciler {
	return &Reconciler{
		flightRepo: flightRepo,
		changeRepo: changeRepo,
		usage:      usage,
		primary:    primary,
		fallbacks:  fallbacks,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
		locks:      make(map[uint]*sync.Mutex),
	}
}

// flightLock serializes reconciliation per flight key so an on-demand
// refresh and a scheduled poll of the same flight cannot race on
// read-modify-write of the stored record.
func (r *Reconciler) flightLock(id uint) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	return lock
}

// Reconcile runs one pass for a flight. A missing flight yields (nil, nil).
func (r *Reconciler) Reconcile(ctx context.Context, flightID uint, opts ReconcileOptions) (*ReconcileResult, error) {
	lock := r.flightLock(flightID)
	lock.Lock()
	defer lock.Unlock()

	start := r.now()
	defer func() {
		r.metrics.ReconcileTime.Observe(r.now().Sub(start).Seconds())
	}()

	stored, err := r.flightRepo.GetByID(ctx, flightID)
	if err != nil {
		return nil, fmt.Errorf("failed to load flight %d: %w", flightID, err)
	}
	if stored == nil {
		return nil, nil
	}

	flight := *stored
	res := &ReconcileResult{Flight: &flight}
	now := r.now()

	// Terminal flights are done; out-of-window flights are not due yet.
	if flightstatus.IsTerminal(flight.Status) {
		return res, nil
	}
	if opts.Lookahead > 0 && flight.ScheduledDeparture.Sub(now) > opts.Lookahead {
		return res, nil
	}

	stale := flight.LastPolledAt == nil || now.Sub(*flight.LastPolledAt) >= opts.StaleAfter
	lowSignal := flightstatus.IsLowSignal(flight.Status) && flight.DelayMinutes <= 0
	if !stale && !lowSignal {
		return res, nil
	}

	if !r.usage.CanMakeRequest(ctx, opts.AllowReserve) {
		// Budget is gone: the primary is never contacted, but fallbacks can
		// still enrich what the user sees. Nothing on this path persists.
		r.enrichDegraded(ctx, &flight, res, now)
		return res, nil
	}

	return r.refresh(ctx, &flight, res, now, opts)
}

func (r *Reconciler) refresh(ctx context.Context, flight *entity.TrackedFlight, res *ReconcileResult, now time.Time, opts ReconcileOptions) (*ReconcileResult, error) {
	oldStatus := flight.Status
	oldGate := flight.Gate
	oldTerminal := flight.Terminal
	oldDelay := flight.DelayMinutes

	r.metrics.ProviderRequests.WithLabelValues("primary").Inc()
	candidates, err := r.primary.LookupByDesignator(ctx, flight.Carrier, flight.Number, flight.FlightDate)
	var authErr error
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrQuotaExhausted):
			r.logger.Warn("Primary provider reported quota exhausted", "flight", flight.Designator())
		case errors.Is(err, repository.ErrProviderAuth):
			r.logger.Error("Primary provider rejected credentials", "flight", flight.Designator(), "error", err)
			authErr = err
		default:
			r.logger.Warn("Primary lookup failed, proceeding without fresh data",
				"flight", flight.Designator(), "error", err)
			r.metrics.ErrorsCount.WithLabelValues("primary_lookup").Inc()
		}
		candidates = nil
	}

	cand := selectCandidate(candidates, flight.Origin, flight.Destination)

	merged := flight.Status
	delay := 0
	providerDate := ""

	if cand != nil {
		providerDate = cand.FlightDate
		delay = candidateDelay(cand)

		if raw, ok := flightstatus.Normalize(cand.Status); ok {
			norm := flightstatus.NormalizeOperational(raw, flight.ScheduledDeparture, flight.FlightDate, now, cand.FlightDate)
			merged = flightstatus.PreferKnown(merged, norm)
		}

		if flight.ScheduledDeparture.IsZero() && !cand.ScheduledDeparture.IsZero() {
			flight.ScheduledDeparture = cand.ScheduledDeparture
		}
		if flight.ScheduledArrival.IsZero() && !cand.ScheduledArrival.IsZero() {
			flight.ScheduledArrival = cand.ScheduledArrival
		}

		if flightstatus.ShouldShowStandInfo(flight.ScheduledDeparture, flight.FlightDate, merged, now) {
			if cand.DepartureGate != "" {
				flight.Gate = cand.DepartureGate
			}
			if cand.DepartureTerminal != "" {
				flight.Terminal = cand.DepartureTerminal
			}
		}

		res.EstimatedDeparture = cand.EstimatedDeparture
		res.EstimatedArrival = cand.EstimatedArrival
		res.Source = "primary"
	}

	// The primary answer was weak: work down the fallback chain until one
	// source resolves the ambiguity. The second fallback is last-resort and
	// never consulted when the first already answered.
	if flightstatus.ShouldUseFallback(merged, delay) {
		for _, fb := range r.fallbacks {
			r.metrics.ProviderRequests.WithLabelValues(fb.Name()).Inc()
			rec := fb.Lookup(ctx, flight.Carrier, flight.Number, flight.ScheduledDeparture)
			if rec == nil {
				continue
			}
			merged, delay = r.mergeFallback(flight, res, rec, merged, delay, now)
			if !flightstatus.ShouldUseFallback(merged, delay) {
				break
			}
		}
	}

	// Candidate data can reintroduce future bleed; normalize once more.
	merged = flightstatus.NormalizeOperational(merged, flight.ScheduledDeparture, flight.FlightDate, now, providerDate)

	if merged != "" {
		flight.Status = merged
	}
	if delay > 0 {
		flight.DelayMinutes = delay
	}
	if !flightstatus.ShouldShowStandInfo(flight.ScheduledDeparture, flight.FlightDate, flight.Status, now) {
		flight.Gate = ""
		flight.Terminal = ""
	}

	var change *entity.StatusChangeRecord
	if flight.Status != oldStatus {
		change = &entity.StatusChangeRecord{
			FlightID:   flight.ID,
			OldStatus:  oldStatus,
			NewStatus:  flight.Status,
			Detail:     fmt.Sprintf("%s: %s -> %s", flight.Designator(), displayStatus(oldStatus), flight.Status),
			DetectedAt: now,
		}
		if err := r.changeRepo.Append(ctx, change); err != nil {
			r.logger.Error("Failed to append status change", "flight", flight.Designator(), "error", err)
			r.metrics.ErrorsCount.WithLabelValues("change_append").Inc()
		} else {
			r.metrics.StatusChanges.Inc()
		}

		if flightstatus.IsTerminal(flight.Status) {
			flight.Active = false
		}
	}

	flight.LastPolledAt = &now
	if err := r.flightRepo.Update(ctx, flight); err != nil {
		return nil, fmt.Errorf("failed to persist flight %d: %w", flight.ID, err)
	}

	res.Updated = true
	res.Change = change
	if flight.Status != oldStatus {
		res.ChangedFields = append(res.ChangedFields, "status")
	}
	if flight.Gate != oldGate {
		res.ChangedFields = append(res.ChangedFields, "gate")
	}
	if flight.Terminal != oldTerminal {
		res.ChangedFields = append(res.ChangedFields, "terminal")
	}
	if flight.DelayMinutes != oldDelay {
		res.ChangedFields = append(res.ChangedFields, "delay")
	}

	return res, authErr
}

// mergeFallback folds one fallback record into the pending state: delay
// wins when positive, status merges under PreferKnown, stand info respects
// the visibility window, estimates must pass the plausibility check.
func (r *Reconciler) mergeFallback(flight *entity.TrackedFlight, res *ReconcileResult, rec *entity.ProviderRecord, merged flightstatus.Status, delay int, now time.Time) (flightstatus.Status, int) {
	if rec.DelayMinutes > 0 && rec.DelayMinutes > delay {
		delay = rec.DelayMinutes
	}

	if raw, ok := flightstatus.Normalize(rec.Status); ok {
		norm := flightstatus.NormalizeOperational(raw, flight.ScheduledDeparture, flight.FlightDate, now, "")
		merged = flightstatus.PreferKnown(merged, norm)
	}

	if flightstatus.ShouldShowStandInfo(flight.ScheduledDeparture, flight.FlightDate, merged, now) {
		if rec.DepartureGate != "" {
			flight.Gate = rec.DepartureGate
		}
		if rec.DepartureTerminal != "" {
			flight.Terminal = rec.DepartureTerminal
		}
	}

	if plausibleEstimate(rec.EstimatedDeparture, flight.ScheduledDeparture) {
		res.EstimatedDeparture = rec.EstimatedDeparture
	}
	if plausibleEstimate(rec.EstimatedArrival, flight.ScheduledArrival) {
		res.EstimatedArrival = rec.EstimatedArrival
	}
	res.Source = rec.Source

	return merged, delay
}

// enrichDegraded consults fallbacks for display only. The stored record is
// untouched: no poll timestamp, no change record, no persisted fields. The
// result is flagged so the UI can disclose fallback-sourced data.
func (r *Reconciler) enrichDegraded(ctx context.Context, flight *entity.TrackedFlight, res *ReconcileResult, now time.Time) {
	res.Degraded = true

	merged := flight.Status
	delay := flight.DelayMinutes
	if !flightstatus.ShouldUseFallback(merged, delay) {
		return
	}

	for _, fb := range r.fallbacks {
		r.metrics.ProviderRequests.WithLabelValues(fb.Name()).Inc()
		rec := fb.Lookup(ctx, flight.Carrier, flight.Number, flight.ScheduledDeparture)
		if rec == nil {
			continue
		}
		merged, delay = r.mergeFallback(flight, res, rec, merged, delay, now)
		if !flightstatus.ShouldUseFallback(merged, delay) {
			break
		}
	}

	merged = flightstatus.NormalizeOperational(merged, flight.ScheduledDeparture, flight.FlightDate, now, "")
	if merged != "" {
		flight.Status = merged
	}
	if delay > 0 {
		flight.DelayMinutes = delay
	}
}

// selectCandidate picks the leg matching the tracked route exactly, falling
// back to the first result.
func selectCandidate(candidates []entity.FlightCandidate, origin, destination string) *entity.FlightCandidate {
	if len(candidates) == 0 {
		return nil
	}
	for i := range candidates {
		if candidates[i].Origin == origin && candidates[i].Destination == destination {
			return &candidates[i]
		}
	}
	return &candidates[0]
}

// candidateDelay prefers the provider's explicit delay when positive and
// otherwise derives one from the estimated-vs-scheduled departure gap.
func candidateDelay(cand *entity.FlightCandidate) int {
	if cand.DelayMinutes > 0 {
		return cand.DelayMinutes
	}
	if cand.EstimatedDeparture != nil && !cand.ScheduledDeparture.IsZero() {
		diff := int(cand.EstimatedDeparture.Sub(cand.ScheduledDeparture).Minutes())
		if diff > 0 {
			return diff
		}
	}
	return 0
}

// plausibleEstimate rejects estimates wildly divergent from the schedule;
// an 18-hour-off estimate is a different rotation, not this flight.
func plausibleEstimate(estimate *time.Time, scheduled time.Time) bool {
	if estimate == nil {
		return false
	}
	if scheduled.IsZero() {
		return true
	}
	diff := estimate.Sub(scheduled)
	if diff < 0 {
		diff = -diff
	}
	return diff <= displayEstimateWindow
}

func displayStatus(s flightstatus.Status) string {
	if s == "" {
		return "unknown"
	}
	return string(s)
}
