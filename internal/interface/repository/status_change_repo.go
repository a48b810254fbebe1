package repository

import (
	"context"
	"time"

	"flightwatch-service/internal/domain/entity"
	"flightwatch-service/internal/domain/repository"
	"flightwatch-service/pkg/flightstatus"

	"gorm.io/gorm"
)

// GormStatusChangeRepository implements the StatusChangeRepository interface
type GormStatusChangeRepository struct {
	db *gorm.DB
}

// NewGormStatusChangeRepository creates a new GORM status change repository
func NewGormStatusChangeRepository(db *gorm.DB) repository.StatusChangeRepository {
	db.AutoMigrate(&StatusChanges{})
	return &GormStatusChangeRepository{
		db: db,
	}
}

// StatusChanges GORM model for database mapping
type StatusChanges struct {
	ID         uint      `gorm:"primaryKey"`
	FlightID   uint      `gorm:"column:flight_id;index"`
	OldStatus  string    `gorm:"column:old_status"`
	NewStatus  string    `gorm:"column:new_status"`
	Detail     string    `gorm:"column:detail"`
	DetectedAt time.Time `gorm:"column:detected_at"`
}

// TableName overrides the default table name
func (StatusChanges) TableName() string {
	return "status_changes"
}

// Append writes one audit entry
func (r *GormStatusChangeRepository) Append(ctx context.Context, record *entity.StatusChangeRecord) error {
	model := StatusChanges{
		FlightID:   record.FlightID,
		OldStatus:  string(record.OldStatus),
		NewStatus:  string(record.NewStatus),
		Detail:     record.Detail,
		DetectedAt: record.DetectedAt,
	}

	result := r.db.WithContext(ctx).Create(&model)
	if result.Error != nil {
		return result.Error
	}

	record.ID = model.ID
	return nil
}

// ListByFlight returns a flight's transitions, most recent first
func (r *GormStatusChangeRepository) ListByFlight(ctx context.Context, flightID uint, limit int) ([]*entity.StatusChangeRecord, error) {
	var models []StatusChanges
	result := r.db.WithContext(ctx).
		Where("flight_id = ?", flightID).
		Order("detected_at desc").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	records := make([]*entity.StatusChangeRecord, 0, len(models))
	for _, m := range models {
		records = append(records, &entity.StatusChangeRecord{
			ID:         m.ID,
			FlightID:   m.FlightID,
			OldStatus:  flightstatus.Status(m.OldStatus),
			NewStatus:  flightstatus.Status(m.NewStatus),
			Detail:     m.Detail,
			DetectedAt: m.DetectedAt,
		})
	}
	return records, nil
}
