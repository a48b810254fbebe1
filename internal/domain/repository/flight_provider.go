package repository

import (
	"context"
	"errors"
	"time"

	"flightwatch-service/internal/domain/entity"
)

// ErrQuotaExhausted is returned by the primary provider when the upstream
// itself reports the monthly quota is spent. Callers treat it as "no new
// data", not a failure.
var ErrQuotaExhausted = errors.New("provider quota exhausted")

// ErrProviderAuth is returned on credential failures. Unlike transient
// errors, retrying will never succeed.
var ErrProviderAuth = errors.New("provider authentication failed")

// PrimaryFlightProvider is the metered primary flight data source. An empty
// candidate slice with a nil error means no matching flight was found.
type PrimaryFlightProvider interface {
	LookupByDesignator(ctx context.Context, carrier, number, flightDate string) ([]entity.FlightCandidate, error)
	LookupByRoute(ctx context.Context, origin, destination, flightDate string) ([]entity.FlightCandidate, error)
}

// FallbackProvider is a free secondary web source consulted only when the
// primary answer is low-signal. Implementations never return an error: on
// any network or parse failure they log and return nil so the caller can
// proceed degraded. scheduledDeparture lets multi-candidate sources pick the
// activity record closest to the tracked flight.
type FallbackProvider interface {
	Name() string
	Lookup(ctx context.Context, carrier, number string, scheduledDeparture time.Time) *entity.ProviderRecord
}

// UsageRecorder is the slice of the usage ledger the primary adapter needs:
// counting real upstream calls and self-correcting when the upstream reports
// exhaustion.
type UsageRecorder interface {
	RecordRequest(ctx context.Context) error
	MarkLimitReached(ctx context.Context) error
}

// Notifier pushes a message to one subscriber, best-effort. A failed send is
// logged by the caller and never aborts the rest of a batch.
type Notifier interface {
	Send(ctx context.Context, subscriberKey, text string) error
}
