package entity

import (
	"time"

	"flightwatch-service/pkg/flightstatus"
)

// StatusChangeRecord is an append-only audit entry written only when the
// canonical status actually transitions.
type StatusChangeRecord struct {
	ID         uint
	FlightID   uint
	OldStatus  flightstatus.Status
	NewStatus  flightstatus.Status
	Detail     string
	DetectedAt time.Time
}
