package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightwatch-service/pkg/logger"
)

func TestFlightAwareLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/live/flight/AA123", r.URL.Path)
		w.Write([]byte(`{
			"status": "departed",
			"departure": {"delayMinutes": 5, "gate": "B22", "estimatedTime": "2026-03-10T14:45:00-05:00"},
			"arrival": {"delayMinutes": 12},
			"url": "https://example.com/AA123"
		}`))
	}))
	defer server.Close()

	fb := NewFlightAwareFallback(server.URL, logger.NewNop())
	rec := fb.Lookup(context.Background(), "AA", "123", time.Time{})
	require.NotNil(t, rec)

	assert.Equal(t, "departed", rec.Status)
	assert.Equal(t, 12, rec.DelayMinutes, "delay is the larger of the two legs")
	assert.Equal(t, "B22", rec.DepartureGate)
	assert.Equal(t, "flightaware", rec.Source)
	require.NotNil(t, rec.EstimatedDeparture)
}

func TestFlightAwareFailuresYieldNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	fb := NewFlightAwareFallback(server.URL, logger.NewNop())
	assert.Nil(t, fb.Lookup(context.Background(), "AA", "123", time.Time{}))

	// An unreachable host degrades the same way.
	server.Close()
	assert.Nil(t, fb.Lookup(context.Background(), "AA", "123", time.Time{}))
}

func TestFlightAwareParseFailureYieldsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	fb := NewFlightAwareFallback(server.URL, logger.NewNop())
	assert.Nil(t, fb.Lookup(context.Background(), "AA", "123", time.Time{}))
}

func TestFlightStatsSelectsRichestCandidate(t *testing.T) {
	scheduled := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"activities": [
			{
				"status": "scheduled",
				"scheduledTime": "2026-03-10T14:30:00Z",
				"departure": {},
				"arrival": {}
			},
			{
				"status": "departed",
				"scheduledTime": "2026-03-10T14:30:00Z",
				"departure": {"delayMinutes": 20, "gate": "A1", "terminal": "2"},
				"arrival": {}
			}
		]}`))
	}))
	defer server.Close()

	fb := NewFlightStatsFallback(server.URL, DefaultScoreWeights(), logger.NewNop())
	rec := fb.Lookup(context.Background(), "AA", "123", scheduled)
	require.NotNil(t, rec)
	assert.Equal(t, "departed", rec.Status)
	assert.Equal(t, 20, rec.DelayMinutes)
	assert.Equal(t, "A1", rec.DepartureGate)
}

func TestFlightStatsExcludesFarCandidates(t *testing.T) {
	scheduled := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	// The rich candidate sits 26 hours away: yesterday's rotation. The only
	// plausible one is the sparse record near the tracked departure.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"activities": [
			{
				"status": "landed",
				"scheduledTime": "2026-03-09T12:30:00Z",
				"departure": {"delayMinutes": 45, "gate": "C9", "terminal": "1"},
				"arrival": {}
			},
			{
				"status": "scheduled",
				"scheduledTime": "2026-03-10T14:30:00Z",
				"departure": {},
				"arrival": {}
			}
		]}`))
	}))
	defer server.Close()

	fb := NewFlightStatsFallback(server.URL, DefaultScoreWeights(), logger.NewNop())
	rec := fb.Lookup(context.Background(), "AA", "123", scheduled)
	require.NotNil(t, rec)
	assert.Equal(t, "scheduled", rec.Status, "out-of-window candidate must be excluded regardless of score")
}

func TestFlightStatsProximityBreaksTies(t *testing.T) {
	scheduled := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"activities": [
			{
				"status": "departed",
				"scheduledTime": "2026-03-10T04:30:00Z",
				"departure": {"gate": "D4"},
				"arrival": {}
			},
			{
				"status": "departed",
				"scheduledTime": "2026-03-10T14:30:00Z",
				"departure": {"gate": "B7"},
				"arrival": {}
			}
		]}`))
	}))
	defer server.Close()

	fb := NewFlightStatsFallback(server.URL, DefaultScoreWeights(), logger.NewNop())
	rec := fb.Lookup(context.Background(), "AA", "123", scheduled)
	require.NotNil(t, rec)
	assert.Equal(t, "B7", rec.DepartureGate)
}

func TestFlightStatsNoCandidatesYieldsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"activities": []}`))
	}))
	defer server.Close()

	fb := NewFlightStatsFallback(server.URL, DefaultScoreWeights(), logger.NewNop())
	assert.Nil(t, fb.Lookup(context.Background(), "AA", "123", time.Now()))
}
