package entity

import "time"

// UsageLedgerEntry is the per-calendar-month API usage row. Month is keyed
// as "2006-01"; at most one row exists per month and the request count only
// ever grows within it.
type UsageLedgerEntry struct {
	ID            uint
	Month         string
	RequestCount  int
	LastRequestAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
