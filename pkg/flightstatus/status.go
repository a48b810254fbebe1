package flightstatus

import (
	"strings"
	"time"
)

// Status is a canonical flight status. Downstream rendering depends on the
// literal string values, so they never change once released.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusDeparted  Status = "departed"
	StatusLanded    Status = "landed"
	StatusArrived   Status = "arrived"
	StatusCancelled Status = "cancelled"
	StatusDiverted  Status = "diverted"
	StatusDelayed   Status = "delayed"
	StatusCompleted Status = "completed"
	StatusUnknown   Status = "unknown"
)

const (
	// DATE_LAYOUT is the calendar-day layout used for tracked flight dates.
	DATE_LAYOUT = "2006-01-02"

	// StandInfoWindow bounds how far before departure gate/terminal
	// assignments are trusted. Stands published earlier are placeholders.
	StandInfoWindow = 6 * time.Hour
)

// synonyms maps raw provider spellings onto the canonical vocabulary.
var synonyms = map[string]Status{
	"scheduled":      StatusScheduled,
	"expected":       StatusScheduled,
	"estimated":      StatusScheduled,
	"on time":        StatusScheduled,
	"on-time":        StatusScheduled,
	"active":         StatusActive,
	"boarding":       StatusActive,
	"gate departure": StatusActive,
	"taxiing":        StatusActive,
	"departed":       StatusDeparted,
	"in-air":         StatusDeparted,
	"in air":         StatusDeparted,
	"in flight":      StatusDeparted,
	"in-flight":      StatusDeparted,
	"en-route":       StatusDeparted,
	"en route":       StatusDeparted,
	"airborne":       StatusDeparted,
	"landed":         StatusLanded,
	"arrived":        StatusArrived,
	"cancelled":      StatusCancelled,
	"canceled":       StatusCancelled,
	"diverted":       StatusDiverted,
	"redirected":     StatusDiverted,
	"delayed":        StatusDelayed,
	"late":           StatusDelayed,
	"completed":      StatusCompleted,
	"unknown":        StatusUnknown,
	"not available":  StatusUnknown,
	"no data":        StatusUnknown,
	"n/a":            StatusUnknown,
	"na":             StatusUnknown,
	"result unknown": StatusUnknown,
}

// Normalize maps a raw provider status string onto the canonical vocabulary.
// Empty or blank input yields ok=false. Recognizable strings map through the
// synonym table; anything else is StatusUnknown.
func Normalize(raw string) (Status, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return "", false
	}
	if s, ok := synonyms[cleaned]; ok {
		return s, true
	}
	return StatusUnknown, true
}

// IsLowSignal reports whether a status carries no actionable information.
// Low-signal statuses must never overwrite a more informative prior status.
func IsLowSignal(s Status) bool {
	return s == "" || s == StatusScheduled || s == StatusUnknown
}

// IsTerminal reports whether a flight in this status is finished. Terminal
// flights stop being polled and are marked inactive.
func IsTerminal(s Status) bool {
	switch s {
	case StatusLanded, StatusArrived, StatusCancelled, StatusCompleted, StatusDiverted:
		return true
	}
	return false
}

// PreferKnown merges a candidate status into the current one. A known status
// can advance or correct, but never regresses to a low-signal candidate.
func PreferKnown(current, candidate Status) Status {
	if IsLowSignal(candidate) {
		return current
	}
	return candidate
}

// NormalizeOperational guards against provider data bleed-through for future
// dates. A stale record for yesterday's instance of the same flight number
// must not read as live progress on tomorrow's: when the provider's own
// record date precedes the tracked date, or the scheduled departure is still
// in the future, any in-progress or terminal-like status falls back to
// scheduled. Cancellations are honored regardless; they apply to the day.
func NormalizeOperational(status Status, scheduledDeparture time.Time, trackedDate string, now time.Time, providerDate string) Status {
	switch status {
	case StatusActive, StatusDeparted, StatusLanded, StatusArrived, StatusCompleted:
	default:
		return status
	}

	if providerDate != "" && trackedDate != "" && providerDate < trackedDate {
		return StatusScheduled
	}
	if !scheduledDeparture.IsZero() && scheduledDeparture.After(now) {
		return StatusScheduled
	}
	return status
}

// ShouldShowStandInfo reports whether gate/terminal assignments are safe to
// display. Stand info is only trusted within StandInfoWindow of departure and
// never while the status is still plainly scheduled, since assignments issued
// days ahead are typically placeholders.
func ShouldShowStandInfo(scheduledDeparture time.Time, trackedDate string, status Status, now time.Time) bool {
	if IsLowSignal(status) {
		return false
	}
	if trackedDate != "" {
		if d, err := time.Parse(DATE_LAYOUT, trackedDate); err == nil {
			if d.Sub(now) > 24*time.Hour {
				return false
			}
		}
	}
	if scheduledDeparture.IsZero() {
		return false
	}
	return scheduledDeparture.Sub(now) <= StandInfoWindow
}

// ShouldUseFallback reports whether the primary answer is weak enough to be
// worth a fallback lookup: a low-signal status with no positive delay known.
func ShouldUseFallback(status Status, delayMinutes int) bool {
	return IsLowSignal(status) && delayMinutes <= 0
}
