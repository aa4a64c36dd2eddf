package store

import (
	"context"

	"gorm.io/gorm/clause"

	"fuel_tracker/internal/models"
)

// upsertStatus writes a live-status row keyed by unit_id. An existing row is
// only overwritten by an observation that is at least as new.
func (s *Store) upsertStatus(ctx context.Context, table string, row interface{}, columns []string, lat, lon *float64) error {
	cols := append([]string{"recorded_at"}, columns...)
	if lat != nil && lon != nil {
		cols = append(cols, "latitude", "longitude")
	}
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "unit_id"}},
		DoUpdates: clause.AssignmentColumns(cols),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: table + ".recorded_at <= excluded.recorded_at"},
		}},
	}).Create(row).Error
}

// UpsertVehicleLevel records a vehicle's latest fuel level and position.
func (s *Store) UpsertVehicleLevel(ctx context.Context, st models.VehicleStatus) error {
	st.RecordedAt = st.RecordedAt.UTC()
	return s.upsertStatus(ctx, "vehicle_statuses", &st, []string{"fuel_level"}, st.Latitude, st.Longitude)
}

// UpsertVehicleOdometer records a vehicle's latest odometer value.
func (s *Store) UpsertVehicleOdometer(ctx context.Context, st models.VehicleStatus) error {
	st.RecordedAt = st.RecordedAt.UTC()
	return s.upsertStatus(ctx, "vehicle_statuses", &st, []string{"odometer"}, st.Latitude, st.Longitude)
}

// UpsertBowserFlow records a bowser's cumulative dispensed counter.
func (s *Store) UpsertBowserFlow(ctx context.Context, st models.BowserStatus) error {
	st.RecordedAt = st.RecordedAt.UTC()
	return s.upsertStatus(ctx, "bowser_statuses", &st, []string{"total_dispensed"}, st.Latitude, st.Longitude)
}

// UpsertBowserLevel records the fuel level of a bowser's own tank.
func (s *Store) UpsertBowserLevel(ctx context.Context, st models.BowserStatus) error {
	st.RecordedAt = st.RecordedAt.UTC()
	return s.upsertStatus(ctx, "bowser_statuses", &st, []string{"fuel_level"}, st.Latitude, st.Longitude)
}

func (s *Store) ListVehicleStatus(ctx context.Context) ([]models.VehicleStatus, error) {
	var out []models.VehicleStatus
	err := s.conn(ctx).Order("unit_id ASC").Find(&out).Error
	return out, err
}

func (s *Store) ListBowserStatus(ctx context.Context) ([]models.BowserStatus, error) {
	var out []models.BowserStatus
	err := s.conn(ctx).Order("unit_id ASC").Find(&out).Error
	return out, err
}

func (s *Store) VehicleStatus(ctx context.Context, unitID int64) (*models.VehicleStatus, error) {
	var st models.VehicleStatus
	if err := s.conn(ctx).First(&st, "unit_id = ?", unitID).Error; err != nil {
		return nil, notFound(err)
	}
	return &st, nil
}

func (s *Store) BowserStatus(ctx context.Context, unitID int64) (*models.BowserStatus, error) {
	var st models.BowserStatus
	if err := s.conn(ctx).First(&st, "unit_id = ?", unitID).Error; err != nil {
		return nil, notFound(err)
	}
	return &st, nil
}
