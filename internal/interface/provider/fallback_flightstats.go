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

// ScoreWeights tunes FlightStats multi-candidate selection. The defaults are
// inherited heuristics, kept configurable rather than baked in.
type ScoreWeights struct {
	Status   int
	Delay    int
	Gate     int
	Terminal int
}

// DefaultScoreWeights returns the inherited weighting
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Status: 2, Delay: 3, Gate: 1, Terminal: 1}
}

// ProximityWindow bounds how far a candidate's own scheduled time may sit
// from the tracked departure before it is excluded outright.
const ProximityWindow = 18 * time.Hour

// FlightStatsFallback is the second-ranked, last-resort fallback source. A
// single designator lookup can return several activity records (yesterday's
// rotation, a codeshare leg); the richest plausible one is selected.
type FlightStatsFallback struct {
	logger     logger.Logger
	httpClient *http.Client
	baseURL    string
	weights    ScoreWeights
}

// NewFlightStatsFallback creates the second-ranked fallback provider
func NewFlightStatsFallback(baseURL string, weights ScoreWeights, logger logger.Logger) repository.FallbackProvider {
	return &FlightStatsFallback{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		weights: weights,
	}
}

// Name identifies the source in logs and provenance tags
func (f *FlightStatsFallback) Name() string {
	return "flightstats"
}

type statsActivity struct {
	Status        string      `json:"status"`
	ScheduledTime string      `json:"scheduledTime"`
	Departure     fallbackLeg `json:"departure"`
	Arrival       fallbackLeg `json:"arrival"`
	URL           string      `json:"url"`
}

// Lookup fetches activity records for a designator and selects the best
// candidate near the tracked departure. Never returns an error; failures
// yield nil.
func (f *FlightStatsFallback) Lookup(ctx context.Context, carrier, number string, scheduledDeparture time.Time) *entity.ProviderRecord {
	endpoint := fmt.Sprintf("%s/flight/%s/%s", f.baseURL, carrier, number)
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

	var payload struct {
		Activities []statsActivity `json:"activities"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		f.logger.Warn("Fallback payload parse failed", "provider", f.Name(), "error", err)
		return nil
	}

	best := f.selectActivity(payload.Activities, scheduledDeparture)
	if best == nil {
		return nil
	}

	return recordFromLegs(fallbackRecord{
		Status:    best.Status,
		Departure: best.Departure,
		Arrival:   best.Arrival,
		URL:       best.URL,
	}, f.Name())
}

// selectActivity ranks candidates by signal richness. Candidates whose own
// scheduled time falls outside ProximityWindow of the tracked departure are
// excluded regardless of score; proximity breaks score ties.
func (f *FlightStatsFallback) selectActivity(activities []statsActivity, scheduledDeparture time.Time) *statsActivity {
	var best *statsActivity
	bestScore := -1
	var bestDistance time.Duration

	for i := range activities {
		a := &activities[i]

		distance := time.Duration(0)
		if !scheduledDeparture.IsZero() {
			own, err := time.Parse(time.RFC3339, a.ScheduledTime)
			if err != nil {
				continue
			}
			distance = own.Sub(scheduledDeparture)
			if distance < 0 {
				distance = -distance
			}
			if distance > ProximityWindow {
				continue
			}
		}

		score := f.score(a)
		if score > bestScore || (score == bestScore && distance < bestDistance) {
			best = a
			bestScore = score
			bestDistance = distance
		}
	}
	return best
}

func (f *FlightStatsFallback) score(a *statsActivity) int {
	score := 0
	if a.Status != "" {
		score += f.weights.Status
	}
	delay := a.Departure.DelayMinutes
	if a.Arrival.DelayMinutes > delay {
		delay = a.Arrival.DelayMinutes
	}
	if delay > 0 {
		score += f.weights.Delay
	}
	if a.Departure.Gate != "" {
		score += f.weights.Gate
	}
	if a.Departure.Terminal != "" {
		score += f.weights.Terminal
	}
	return score
}
