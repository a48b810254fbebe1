package repository

import (
	"context"
	"time"

	"flightwatch-service/internal/domain/entity"
	"flightwatch-service/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUsageRepository implements the UsageRepository interface
type GormUsageRepository struct {
	db *gorm.DB
}

// NewGormUsageRepository creates a new GORM usage ledger repository
func NewGormUsageRepository(db *gorm.DB) repository.UsageRepository {
	db.AutoMigrate(&UsageLedgers{})
	return &GormUsageRepository{
		db: db,
	}
}

// UsageLedgers GORM model for database mapping
type UsageLedgers struct {
	ID            uint       `gorm:"primaryKey"`
	Month         string     `gorm:"column:month;unique"`
	RequestCount  int        `gorm:"column:request_count"`
	LastRequestAt *time.Time `gorm:"column:last_request_at"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName overrides the default table name
func (UsageLedgers) TableName() string {
	return "usage_ledgers"
}

// GetOrCreate returns the month's ledger row, creating a zero row if absent.
// The insert is conflict-safe: concurrent creators neither error nor leave a
// second row behind.
func (r *GormUsageRepository) GetOrCreate(ctx context.Context, month string) (*entity.UsageLedgerEntry, error) {
	model := UsageLedgers{Month: month}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "month"}},
		DoNothing: true,
	}).Create(&model)
	if result.Error != nil {
		return nil, result.Error
	}

	var row UsageLedgers
	if err := r.db.WithContext(ctx).Where("month = ?", month).First(&row).Error; err != nil {
		return nil, err
	}

	return &entity.UsageLedgerEntry{
		ID:            row.ID,
		Month:         row.Month,
		RequestCount:  row.RequestCount,
		LastRequestAt: row.LastRequestAt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

// Increment bumps the month's request count in place at the store, so two
// concurrent reconciliations cannot lose a count to read-then-write-back.
func (r *GormUsageRepository) Increment(ctx context.Context, month string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&UsageLedgers{}).
		Where("month = ?", month).
		Updates(map[string]interface{}{
			"request_count":   gorm.Expr("request_count + ?", 1),
			"last_request_at": at,
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetOrCreate(ctx, month); err != nil {
			return err
		}
		return r.db.WithContext(ctx).Model(&UsageLedgers{}).
			Where("month = ?", month).
			Updates(map[string]interface{}{
				"request_count":   gorm.Expr("request_count + ?", 1),
				"last_request_at": at,
			}).Error
	}
	return nil
}

// SetCount pins the month's count, used when the upstream itself reports
// quota exhaustion and local accounting has drifted low. The count never
// moves backwards.
func (r *GormUsageRepository) SetCount(ctx context.Context, month string, count int) error {
	if _, err := r.GetOrCreate(ctx, month); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&UsageLedgers{}).
		Where("month = ? AND request_count < ?", month, count).
		Update("request_count", count)
	return result.Error
}
