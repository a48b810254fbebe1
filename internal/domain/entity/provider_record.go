package entity

import "time"

// ProviderRecord is the normalized shape every provider adapter produces.
// It is ephemeral and never persisted. Empty strings and nil pointers mean
// the provider had nothing to say about that field.
type ProviderRecord struct {
	Status             string
	DelayMinutes       int
	EstimatedDeparture *time.Time
	EstimatedArrival   *time.Time
	DepartureGate      string
	DepartureTerminal  string
	ArrivalGate        string
	ArrivalTerminal    string
	Source             string
	SourceURL          string
}

// FlightCandidate is one flight leg returned by the primary provider for a
// designator or route lookup. Scheduled/estimated timestamps carry the
// provider's original UTC offsets.
type FlightCandidate struct {
	Carrier            string
	Number             string
	FlightDate         string
	Origin             string
	Destination        string
	Status             string
	DelayMinutes       int
	ScheduledDeparture time.Time
	ScheduledArrival   time.Time
	EstimatedDeparture *time.Time
	EstimatedArrival   *time.Time
	DepartureGate      string
	DepartureTerminal  string
	ArrivalGate        string
	ArrivalTerminal    string
}
