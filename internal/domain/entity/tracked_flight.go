package entity

import (
	"time"

	"flightwatch-service/pkg/flightstatus"
)

// TrackedFlight is a flight observed on behalf of one or more subscribers.
// FlightDate is the requested calendar date, which may differ from a
// provider's own record date. Scheduled timestamps keep their original UTC
// offsets; they are never coerced to local wall clock.
type TrackedFlight struct {
	ID                 uint
	Carrier            string
	Number             string
	FlightDate         string
	Origin             string
	Destination        string
	ScheduledDeparture time.Time
	ScheduledArrival   time.Time
	Status             flightstatus.Status
	Gate               string
	Terminal           string
	DelayMinutes       int
	LastPolledAt       *time.Time
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Designator returns the carrier+number flight designator, e.g. "AA123".
func (f *TrackedFlight) Designator() string {
	return f.Carrier + f.Number
}
