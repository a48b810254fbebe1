package repository

import (
	"context"
	"time"

	"flightwatch-service/internal/domain/entity"
	"flightwatch-service/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSubscriptionRepository implements the SubscriptionRepository interface
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GORM subscription repository
func NewGormSubscriptionRepository(db *gorm.DB) repository.SubscriptionRepository {
	db.AutoMigrate(&Subscriptions{})
	return &GormSubscriptionRepository{
		db: db,
	}
}

// Subscriptions GORM model for database mapping
type Subscriptions struct {
	ID            uint   `gorm:"primaryKey"`
	SubscriberKey string `gorm:"column:subscriber_key;index:idx_subscriber_flight,unique"`
	FlightID      uint   `gorm:"column:flight_id;index:idx_subscriber_flight,unique;index"`
	CreatedAt     time.Time
}

// TableName overrides the default table name
func (Subscriptions) TableName() string {
	return "subscriptions"
}

// Insert adds a subscription; a duplicate subscriber/flight pair is a no-op
func (r *GormSubscriptionRepository) Insert(ctx context.Context, sub *entity.Subscription) error {
	model := Subscriptions{
		SubscriberKey: sub.SubscriberKey,
		FlightID:      sub.FlightID,
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscriber_key"}, {Name: "flight_id"}},
		DoNothing: true,
	}).Create(&model)
	if result.Error != nil {
		return result.Error
	}

	sub.ID = model.ID
	sub.CreatedAt = model.CreatedAt
	return nil
}

// Delete removes one subscriber's subscription to a flight
func (r *GormSubscriptionRepository) Delete(ctx context.Context, subscriberKey string, flightID uint) error {
	result := r.db.WithContext(ctx).
		Where("subscriber_key = ? AND flight_id = ?", subscriberKey, flightID).
		Delete(&Subscriptions{})
	return result.Error
}

// ListSubscribers returns the subscriber keys watching a flight
func (r *GormSubscriptionRepository) ListSubscribers(ctx context.Context, flightID uint) ([]string, error) {
	var keys []string
	result := r.db.WithContext(ctx).Model(&Subscriptions{}).
		Where("flight_id = ?", flightID).
		Order("created_at asc").
		Pluck("subscriber_key", &keys)
	if result.Error != nil {
		return nil, result.Error
	}
	return keys, nil
}

// CountByFlight returns how many subscribers a flight still has
func (r *GormSubscriptionRepository) CountByFlight(ctx context.Context, flightID uint) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&Subscriptions{}).
		Where("flight_id = ?", flightID).
		Count(&count)
	return count, result.Error
}
