package repository

import (
	"context"
	"errors"
	"time"

	"flightwatch-service/internal/domain/entity"
	"flightwatch-service/internal/domain/repository"
	"flightwatch-service/pkg/flightstatus"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormFlightRepository implements the FlightRepository interface
type GormFlightRepository struct {
	db *gorm.DB
}

// NewGormFlightRepository creates a new GORM flight repository
func NewGormFlightRepository(db *gorm.DB) repository.FlightRepository {
	db.AutoMigrate(&TrackedFlights{})
	return &GormFlightRepository{
		db: db,
	}
}

// TrackedFlights GORM model for database mapping. Scheduled times are kept
// twice: as RFC3339 text preserving the provider's original UTC offset for
// display, and as UTC timestamps for range queries.
type TrackedFlights struct {
	ID                 uint   `gorm:"primaryKey"`
	Carrier            string `gorm:"column:carrier;index:idx_designator_date,unique"`
	Number             string `gorm:"column:number;index:idx_designator_date,unique"`
	FlightDate         string `gorm:"column:flight_date;index:idx_designator_date,unique"`
	Origin             string `gorm:"column:origin"`
	Destination        string `gorm:"column:destination"`
	ScheduledDeparture string `gorm:"column:scheduled_departure"`
	ScheduledArrival   string `gorm:"column:scheduled_arrival"`
	DepartureUTC       time.Time `gorm:"column:departure_utc;index"`
	ArrivalUTC         time.Time `gorm:"column:arrival_utc"`
	Status             string    `gorm:"column:status"`
	Gate               string    `gorm:"column:gate"`
	Terminal           string    `gorm:"column:terminal"`
	DelayMinutes       int       `gorm:"column:delay_minutes"`
	LastPolledAt       *time.Time `gorm:"column:last_polled_at"`
	Active             bool       `gorm:"column:active;index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName overrides the default table name
func (TrackedFlights) TableName() string {
	return "tracked_flights"
}

func toFlightModel(f *entity.TrackedFlight) *TrackedFlights {
	m := &TrackedFlights{
		ID:           f.ID,
		Carrier:      f.Carrier,
		Number:       f.Number,
		FlightDate:   f.FlightDate,
		Origin:       f.Origin,
		Destination:  f.Destination,
		Status:       string(f.Status),
		Gate:         f.Gate,
		Terminal:     f.Terminal,
		DelayMinutes: f.DelayMinutes,
		LastPolledAt: f.LastPolledAt,
		Active:       f.Active,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
	if !f.ScheduledDeparture.IsZero() {
		m.ScheduledDeparture = f.ScheduledDeparture.Format(time.RFC3339)
		m.DepartureUTC = f.ScheduledDeparture.UTC()
	}
	if !f.ScheduledArrival.IsZero() {
		m.ScheduledArrival = f.ScheduledArrival.Format(time.RFC3339)
		m.ArrivalUTC = f.ScheduledArrival.UTC()
	}
	return m
}

func toFlightEntity(m *TrackedFlights) *entity.TrackedFlight {
	f := &entity.TrackedFlight{
		ID:           m.ID,
		Carrier:      m.Carrier,
		Number:       m.Number,
		FlightDate:   m.FlightDate,
		Origin:       m.Origin,
		Destination:  m.Destination,
		Status:       flightstatus.Status(m.Status),
		Gate:         m.Gate,
		Terminal:     m.Terminal,
		DelayMinutes: m.DelayMinutes,
		LastPolledAt: m.LastPolledAt,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.ScheduledDeparture != "" {
		if t, err := time.Parse(time.RFC3339, m.ScheduledDeparture); err == nil {
			f.ScheduledDeparture = t
		}
	}
	if m.ScheduledArrival != "" {
		if t, err := time.Parse(time.RFC3339, m.ScheduledArrival); err == nil {
			f.ScheduledArrival = t
		}
	}
	return f
}

// GetByID finds a tracked flight by ID. A missing flight is (nil, nil).
func (r *GormFlightRepository) GetByID(ctx context.Context, id uint) (*entity.TrackedFlight, error) {
	var model TrackedFlights
	result := r.db.WithContext(ctx).First(&model, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return toFlightEntity(&model), nil
}

// GetByDesignatorAndDate finds a tracked flight by carrier, number and the
// requested calendar date. A missing flight is (nil, nil).
func (r *GormFlightRepository) GetByDesignatorAndDate(ctx context.Context, carrier, number, flightDate string) (*entity.TrackedFlight, error) {
	var model TrackedFlights
	result := r.db.WithContext(ctx).
		Where("carrier = ? AND number = ? AND flight_date = ?", carrier, number, flightDate).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return toFlightEntity(&model), nil
}

// Upsert creates or updates a tracked flight keyed by designator+date
func (r *GormFlightRepository) Upsert(ctx context.Context, flight *entity.TrackedFlight) error {
	model := toFlightModel(flight)
	// Conflict resolution keys on the designator index, never the rowid.
	model.ID = 0

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "carrier"}, {Name: "number"}, {Name: "flight_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"origin", "destination", "scheduled_departure", "scheduled_arrival",
			"departure_utc", "arrival_utc", "status", "gate", "terminal",
			"delay_minutes", "last_polled_at", "active", "updated_at",
		}),
	}).Create(model)
	if result.Error != nil {
		return result.Error
	}

	existing, err := r.GetByDesignatorAndDate(ctx, flight.Carrier, flight.Number, flight.FlightDate)
	if err != nil {
		return err
	}
	if existing != nil {
		flight.ID = existing.ID
	}
	return nil
}

// Update persists all mutable fields of an existing flight
func (r *GormFlightRepository) Update(ctx context.Context, flight *entity.TrackedFlight) error {
	model := toFlightModel(flight)
	result := r.db.WithContext(ctx).Model(&TrackedFlights{}).
		Where("id = ?", flight.ID).
		Updates(map[string]interface{}{
			"origin":              model.Origin,
			"destination":         model.Destination,
			"scheduled_departure": model.ScheduledDeparture,
			"scheduled_arrival":   model.ScheduledArrival,
			"departure_utc":       model.DepartureUTC,
			"arrival_utc":         model.ArrivalUTC,
			"status":              model.Status,
			"gate":                model.Gate,
			"terminal":            model.Terminal,
			"delay_minutes":       model.DelayMinutes,
			"last_polled_at":      model.LastPolledAt,
			"active":              model.Active,
		})
	return result.Error
}

// ListActive returns all flights still flagged active
func (r *GormFlightRepository) ListActive(ctx context.Context) ([]*entity.TrackedFlight, error) {
	var models []TrackedFlights
	result := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("departure_utc asc").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	flights := make([]*entity.TrackedFlight, 0, len(models))
	for i := range models {
		flights = append(flights, toFlightEntity(&models[i]))
	}
	return flights, nil
}

// Deactivate clears the active flag for one flight
func (r *GormFlightRepository) Deactivate(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&TrackedFlights{}).
		Where("id = ?", id).
		Update("active", false)
	return result.Error
}

var terminalStatuses = []string{
	string(flightstatus.StatusLanded),
	string(flightstatus.StatusArrived),
	string(flightstatus.StatusCancelled),
	string(flightstatus.StatusCompleted),
	string(flightstatus.StatusDiverted),
}

// DeactivateTerminalBefore clears the active flag, batched, for flights in a
// terminal status whose departure is older than the cutoff
func (r *GormFlightRepository) DeactivateTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&TrackedFlights{}).
		Where("active = ? AND status IN ? AND departure_utc < ?", true, terminalStatuses, cutoff.UTC()).
		Update("active", false)
	return result.RowsAffected, result.Error
}

// DeleteOlderThan hard-deletes flights whose departure is older than the
// cutoff regardless of status, cascading to change records and subscriptions
func (r *GormFlightRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&TrackedFlights{}).
			Where("departure_utc < ?", cutoff.UTC()).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Where("flight_id IN ?", ids).Delete(&StatusChanges{}).Error; err != nil {
			return err
		}
		if err := tx.Where("flight_id IN ?", ids).Delete(&Subscriptions{}).Error; err != nil {
			return err
		}

		result := tx.Where("id IN ?", ids).Delete(&TrackedFlights{})
		deleted = result.RowsAffected
		return result.Error
	})

	return deleted, err
}
