package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"flightwatch-service/internal/domain/entity"
	"flightwatch-service/internal/domain/repository"
	"flightwatch-service/pkg/logger"
)

// FlightAwareFallback is the first-ranked fallback web source. It is treated
// as an opaque endpoint returning one activity record per designator; all
// failures degrade to a nil record.
type FlightAwareFallback struct {
	logger     logger.Logger
	httpClient *http.Client
	baseURL    string
}

// NewFlightAwareFallback creates the first-ranked fallback provider
func NewFlightAwareFallback(baseURL string, logger logger.Logger) repository.FallbackProvider {
	return &FlightAwareFallback{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// Name identifies the source in logs and provenance tags
func (f *FlightAwareFallback) Name() string {
	return "flightaware"
}

type fallbackLeg struct {
	ScheduledTime string `json:"scheduledTime"`
	EstimatedTime string `json:"estimatedTime"`
	DelayMinutes  int    `json:"delayMinutes"`
	Gate          string `json:"gate"`
	Terminal      string `json:"terminal"`
}

type fallbackRecord struct {
	Status    string      `json:"status"`
	Departure fallbackLeg `json:"departure"`
	Arrival   fallbackLeg `json:"arrival"`
	URL       string      `json:"url"`
}

// Lookup fetches the current activity record for a designator. It never
// returns an error: network and parse failures are logged at warn level and
// yield nil so the caller proceeds degraded.
func (f *FlightAwareFallback) Lookup(ctx context.Context, carrier, number string, scheduledDeparture time.Time) *entity.ProviderRecord {
	endpoint := fmt.Sprintf("%s/live/flight/%s%s", f.baseURL, carrier, number)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		f.logger.Warn("Fallback request build failed", "provider", f.Name(), "error", err)
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Warn("Fallback lookup failed", "provider", f.Name(), "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("Fallback lookup returned non-OK", "provider", f.Name(), "status", resp.StatusCode)
		return nil
	}

	var raw fallbackRecord
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		f.logger.Warn("Fallback payload parse failed", "provider", f.Name(), "error", err)
		return nil
	}

	return recordFromLegs(raw, f.Name())
}

// recordFromLegs normalizes a two-leg payload into a ProviderRecord. The
// delay is the larger of the two leg signals: mid-flight the arrival delay
// is usually the fresher number.
func recordFromLegs(raw fallbackRecord, source string) *entity.ProviderRecord {
	rec := &entity.ProviderRecord{
		Status:            raw.Status,
		DepartureGate:     raw.Departure.Gate,
		DepartureTerminal: raw.Departure.Terminal,
		ArrivalGate:       raw.Arrival.Gate,
		ArrivalTerminal:   raw.Arrival.Terminal,
		Source:            source,
		SourceURL:         raw.URL,
	}

	delay := raw.Departure.DelayMinutes
	if raw.Arrival.DelayMinutes > delay {
		delay = raw.Arrival.DelayMinutes
	}
	rec.DelayMinutes = delay

	if t, err := time.Parse(time.RFC3339, raw.Departure.EstimatedTime); err == nil {
		rec.EstimatedDeparture = &t
	}
	if t, err := time.Parse(time.RFC3339, raw.Arrival.EstimatedTime); err == nil {
		rec.EstimatedArrival = &t
	}
	return rec
}
