package templates

import (
	"fmt"
	"strings"
	"time"

	"flightwatch-service/internal/domain/entity"
	"flightwatch-service/pkg/flightstatus"
)

const TIME_LAYOUT = "2006-01-02 15:04 -0700"

const STATUS_TEMPLATE = `✈️ %s  %s → %s
Date: %s
Departure: %s
Arrival: %s
Status: %s`

// StatusMessage renders a flight snapshot for the chat layer. Estimated
// times and the degraded disclosure are appended only when present.
func StatusMessage(flight *entity.TrackedFlight, estimatedDeparture, estimatedArrival *time.Time, degraded bool, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, STATUS_TEMPLATE,
		flight.Designator(),
		flight.Origin,
		flight.Destination,
		flight.FlightDate,
		formatTime(flight.ScheduledDeparture),
		formatTime(flight.ScheduledArrival),
		statusLine(flight.Status),
	)

	if flight.DelayMinutes > 0 {
		fmt.Fprintf(&b, "\nDelay: %d min", flight.DelayMinutes)
	}
	if flight.Gate != "" {
		fmt.Fprintf(&b, "\nGate: %s", flight.Gate)
	}
	if flight.Terminal != "" {
		fmt.Fprintf(&b, "\nTerminal: %s", flight.Terminal)
	}
	if estimatedDeparture != nil {
		fmt.Fprintf(&b, "\nEstimated departure: %s", formatTime(*estimatedDeparture))
	}
	if estimatedArrival != nil {
		fmt.Fprintf(&b, "\nEstimated arrival: %s", formatTime(*estimatedArrival))
	}
	if flight.LastPolledAt != nil {
		fmt.Fprintf(&b, "\nUpdated %s ago", formatAge(now.Sub(*flight.LastPolledAt)))
	}
	if degraded {
		b.WriteString("\n⚠️ Shown from fallback sources; live data temporarily limited")
	}

	return b.String()
}

// ChangeMessage renders a field-level before/after push notification
func ChangeMessage(flight *entity.TrackedFlight, change *entity.StatusChangeRecord, changedFields []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "✈️ %s  %s → %s update", flight.Designator(), flight.Origin, flight.Destination)

	if change != nil {
		fmt.Fprintf(&b, "\nStatus: %s → %s", blankAsUnknown(change.OldStatus), change.NewStatus)
	}
	for _, field := range changedFields {
		switch field {
		case "delay":
			fmt.Fprintf(&b, "\nDelay: %d min", flight.DelayMinutes)
		case "gate":
			if flight.Gate != "" {
				fmt.Fprintf(&b, "\nGate: %s", flight.Gate)
			}
		case "terminal":
			if flight.Terminal != "" {
				fmt.Fprintf(&b, "\nTerminal: %s", flight.Terminal)
			}
		}
	}

	return b.String()
}

func statusLine(s flightstatus.Status) string {
	return string(blankAsUnknown(s))
}

func blankAsUnknown(s flightstatus.Status) flightstatus.Status {
	if s == "" {
		return flightstatus.StatusUnknown
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(TIME_LAYOUT)
}

func formatAge(d time.Duration) string {
	if d < time.Minute {
		return "moments"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
