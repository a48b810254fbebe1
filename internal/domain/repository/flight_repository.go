package repository

import (
	"context"
	"time"

	"flightwatch-service/internal/domain/entity"
)

// FlightRepository defines the interface for tracked flight storage
type FlightRepository interface {
	GetByID(ctx context.Context, id uint) (*entity.TrackedFlight, error)
	GetByDesignatorAndDate(ctx context.Context, carrier, number, flightDate string) (*entity.TrackedFlight, error)
	Upsert(ctx context.Context, flight *entity.TrackedFlight) error
	Update(ctx context.Context, flight *entity.TrackedFlight) error
	ListActive(ctx context.Context) ([]*entity.TrackedFlight, error)
	Deactivate(ctx context.Context, id uint) error
	DeactivateTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
