package repository

import (
	"context"

	"flightwatch-service/internal/domain/entity"
)

// StatusChangeRepository defines the interface for the append-only status
// transition audit log
type StatusChangeRepository interface {
	Append(ctx context.Context, record *entity.StatusChangeRecord) error
	ListByFlight(ctx context.Context, flightID uint, limit int) ([]*entity.StatusChangeRecord, error)
}
