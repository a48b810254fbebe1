package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"flightwatch-service/internal/domain/entity"
	"flightwatch-service/internal/domain/repository"
	"flightwatch-service/pkg/logger"

	"golang.org/x/oauth2/clientcredentials"
)

// PrimaryConfig holds the primary flight data provider settings. When
// TokenURL is set the client authenticates with OAuth2 client credentials;
// otherwise APIKey is sent as a request header.
type PrimaryConfig struct {
	BaseURL      string
	APIKey       string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// PrimaryClient implements the PrimaryFlightProvider interface against the
// metered upstream API. Every real upstream call is recorded on the usage
// ledger; cache hits are free.
type PrimaryClient struct {
	logger     logger.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      *ResponseCache
	usage      repository.UsageRecorder
}

// NewPrimaryClient creates a new primary provider client
func NewPrimaryClient(cfg PrimaryConfig, cache *ResponseCache, usage repository.UsageRecorder, logger logger.Logger) *PrimaryClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	var httpClient *http.Client
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		httpClient = cc.Client(context.Background())
		httpClient.Timeout = timeout
	} else {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &PrimaryClient{
		logger:     logger,
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		cache:      cache,
		usage:      usage,
	}
}

// wire payloads for the upstream API

type legPayload struct {
	Airport       string `json:"airport"`
	ScheduledTime string `json:"scheduledTime"`
	EstimatedTime string `json:"estimatedTime"`
	Gate          string `json:"gate"`
	Terminal      string `json:"terminal"`
}

type flightPayload struct {
	Carrier      string     `json:"carrier"`
	Number       string     `json:"number"`
	Date         string     `json:"date"`
	Status       string     `json:"status"`
	DelayMinutes int        `json:"delayMinutes"`
	Departure    legPayload `json:"departure"`
	Arrival      legPayload `json:"arrival"`
}

type lookupResponse struct {
	Flights []flightPayload `json:"flights"`
}

// LookupByDesignator fetches candidate flights for a carrier+number on a
// date. An empty slice with nil error means nothing matched.
func (c *PrimaryClient) LookupByDesignator(ctx context.Context, carrier, number, flightDate string) ([]entity.FlightCandidate, error) {
	cacheKey := fmt.Sprintf("designator:%s%s:%s", carrier, number, flightDate)
	if cached, ok := c.cache.Get(cacheKey); ok {
		c.logger.Debug("Primary lookup served from cache", "key", cacheKey)
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/flights/%s%s?date=%s", c.baseURL, carrier, number, url.QueryEscape(flightDate))
	candidates, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	c.cache.Put(cacheKey, candidates)
	return candidates, nil
}

// LookupByRoute fetches candidate flights between two airports on a date
func (c *PrimaryClient) LookupByRoute(ctx context.Context, origin, destination, flightDate string) ([]entity.FlightCandidate, error) {
	cacheKey := fmt.Sprintf("route:%s-%s:%s", origin, destination, flightDate)
	if cached, ok := c.cache.Get(cacheKey); ok {
		c.logger.Debug("Primary lookup served from cache", "key", cacheKey)
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/routes/%s/%s?date=%s", c.baseURL, origin, destination, url.QueryEscape(flightDate))
	candidates, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	c.cache.Put(cacheKey, candidates)
	return candidates, nil
}

func (c *PrimaryClient) fetch(ctx context.Context, endpoint string) ([]entity.FlightCandidate, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach provider: %w", err)
	}
	defer resp.Body.Close()

	if err := c.usage.RecordRequest(ctx); err != nil {
		c.logger.Error("Failed to record API usage", "error", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	case http.StatusTooManyRequests:
		if err := c.usage.MarkLimitReached(ctx); err != nil {
			c.logger.Error("Failed to mark usage limit reached", "error", err)
		}
		return nil, repository.ErrQuotaExhausted
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, repository.ErrProviderAuth
	default:
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	candidates := make([]entity.FlightCandidate, 0, len(payload.Flights))
	for _, f := range payload.Flights {
		candidates = append(candidates, toCandidate(f))
	}
	return candidates, nil
}

func toCandidate(f flightPayload) entity.FlightCandidate {
	cand := entity.FlightCandidate{
		Carrier:           f.Carrier,
		Number:            f.Number,
		FlightDate:        f.Date,
		Origin:            f.Departure.Airport,
		Destination:       f.Arrival.Airport,
		Status:            f.Status,
		DelayMinutes:      f.DelayMinutes,
		DepartureGate:     f.Departure.Gate,
		DepartureTerminal: f.Departure.Terminal,
		ArrivalGate:       f.Arrival.Gate,
		ArrivalTerminal:   f.Arrival.Terminal,
	}
	if t, err := time.Parse(time.RFC3339, f.Departure.ScheduledTime); err == nil {
		cand.ScheduledDeparture = t
	}
	if t, err := time.Parse(time.RFC3339, f.Arrival.ScheduledTime); err == nil {
		cand.ScheduledArrival = t
	}
	if t, err := time.Parse(time.RFC3339, f.Departure.EstimatedTime); err == nil {
		cand.EstimatedDeparture = &t
	}
	if t, err := time.Parse(time.RFC3339, f.Arrival.EstimatedTime); err == nil {
		cand.EstimatedArrival = &t
	}
	return cand
}
