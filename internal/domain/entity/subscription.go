package entity

import "time"

// Subscription pairs a subscriber key with a tracked flight. The pair is
// unique; inserting it twice is a no-op.
type Subscription struct {
	ID            uint
	SubscriberKey string
	FlightID      uint
	CreatedAt     time.Time
}
