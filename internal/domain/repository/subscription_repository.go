package repository

import (
	"context"

	"flightwatch-service/internal/domain/entity"
)

// SubscriptionRepository defines the interface for subscription storage.
// Insert is idempotent: a duplicate subscriber/flight pair is a no-op.
type SubscriptionRepository interface {
	Insert(ctx context.Context, sub *entity.Subscription) error
	Delete(ctx context.Context, subscriberKey string, flightID uint) error
	ListSubscribers(ctx context.Context, flightID uint) ([]string, error)
	CountByFlight(ctx context.Context, flightID uint) (int64, error)
}
