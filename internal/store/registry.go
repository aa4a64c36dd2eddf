package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"fuel_tracker/internal/geo"
	"fuel_tracker/internal/models"
)

// RegisterSensor returns the sensor for (unit, sensor), creating it on first
// sight. The kind is decided here, once, from the sensor name.
func (s *Store) RegisterSensor(ctx context.Context, unitID, sensorID int64, name string) (*models.Sensor, error) {
	var sensor models.Sensor
	err := s.conn(ctx).
		Where("unit_id = ? AND sensor_id = ?", unitID, sensorID).
		Attrs(models.Sensor{
			UnitID:   unitID,
			SensorID: sensorID,
			Name:     name,
			Kind:     ClassifySensor(name),
		}).
		FirstOrCreate(&sensor).Error
	if err != nil {
		return nil, fmt.Errorf("register sensor %d/%d: %w", unitID, sensorID, err)
	}
	return &sensor, nil
}

func (s *Store) VehicleByUnit(ctx context.Context, unitID int64) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := s.conn(ctx).Where("unit_id = ?", unitID).First(&v).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (s *Store) BowserByUnit(ctx context.Context, unitID int64) (*models.Bowser, error) {
	var b models.Bowser
	if err := s.conn(ctx).Where("unit_id = ?", unitID).First(&b).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (s *Store) BowserByGeofence(ctx context.Context, geofenceID uint) (*models.Bowser, error) {
	var b models.Bowser
	if err := s.conn(ctx).Where("geofence_id = ?", geofenceID).First(&b).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (s *Store) DriverByCode(ctx context.Context, code string) (*models.Driver, error) {
	var d models.Driver
	if err := s.conn(ctx).Where("identity_code = ?", code).First(&d).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *Store) VehicleByID(ctx context.Context, id uint) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := s.conn(ctx).First(&v, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (s *Store) BowserByID(ctx context.Context, id uint) (*models.Bowser, error) {
	var b models.Bowser
	if err := s.conn(ctx).First(&b, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// ActiveZones returns the geofences of every active bowser.
func (s *Store) ActiveZones(ctx context.Context) ([]geo.Zone, error) {
	var bowsers []models.Bowser
	err := s.conn(ctx).
		Preload("Geofence").
		Where("active = ?", true).
		Order("id ASC").
		Find(&bowsers).Error
	if err != nil {
		return nil, err
	}

	zones := make([]geo.Zone, 0, len(bowsers))
	for _, b := range bowsers {
		if b.Geofence == nil {
			continue
		}
		zones = append(zones, geo.Zone{
			BowserID:   b.ID,
			GeofenceID: b.Geofence.ID,
			Name:       b.Geofence.Name,
			Center:     geo.Point{Lat: b.Geofence.CenterLat, Lon: b.Geofence.CenterLon},
			Radius:     b.Geofence.Radius,
		})
	}
	return zones, nil
}

func (s *Store) ListDrivers(ctx context.Context) ([]models.Driver, error) {
	var out []models.Driver
	err := s.conn(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

func (s *Store) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	var out []models.Vehicle
	err := s.conn(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

func (s *Store) ListBowsers(ctx context.Context) ([]models.Bowser, error) {
	var out []models.Bowser
	err := s.conn(ctx).Preload("Geofence").Order("id ASC").Find(&out).Error
	return out, err
}

func (s *Store) ListGeofences(ctx context.Context) ([]models.Geofence, error) {
	var out []models.Geofence
	err := s.conn(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

// UpsertDriver creates the driver or updates the one holding the same
// identity code. d.ID is set on return.
func (s *Store) UpsertDriver(ctx context.Context, d *models.Driver) error {
	var existing models.Driver
	err := s.conn(ctx).Where("identity_code = ?", d.IdentityCode).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.conn(ctx).Create(d).Error
	case err != nil:
		return err
	}
	d.ID = existing.ID
	return s.conn(ctx).Model(&existing).Updates(map[string]interface{}{
		"name": d.Name,
		"role": d.Role,
	}).Error
}

// UpsertVehicle keys on the tracking unit id.
func (s *Store) UpsertVehicle(ctx context.Context, v *models.Vehicle) error {
	var existing models.Vehicle
	err := s.conn(ctx).Where("unit_id = ?", v.UnitID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		active := v.Active
		if err := s.conn(ctx).Create(v).Error; err != nil {
			return err
		}
		// default:true swallows a zero value on insert
		if !active {
			return s.conn(ctx).Model(v).Update("active", false).Error
		}
		return nil
	case err != nil:
		return err
	}
	v.ID = existing.ID
	return s.conn(ctx).Model(&existing).Updates(map[string]interface{}{
		"name":          v.Name,
		"registration":  v.Registration,
		"fuel_capacity": v.FuelCapacity,
		"active":        v.Active,
	}).Error
}

// UpsertGeofence keys on the geofence name.
func (s *Store) UpsertGeofence(ctx context.Context, g *models.Geofence) error {
	var existing models.Geofence
	err := s.conn(ctx).Where("name = ?", g.Name).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.conn(ctx).Create(g).Error
	case err != nil:
		return err
	}
	g.ID = existing.ID
	return s.conn(ctx).Model(&existing).Updates(map[string]interface{}{
		"center_lat": g.CenterLat,
		"center_lon": g.CenterLon,
		"radius":     g.Radius,
	}).Error
}

// UpsertBowser keys on the tracking unit id. A bowser always owns a geofence.
func (s *Store) UpsertBowser(ctx context.Context, b *models.Bowser) error {
	if b.GeofenceID == 0 {
		return fmt.Errorf("bowser %q: %w", b.Name, ErrMissingGeofence)
	}
	b.Geofence = nil

	var existing models.Bowser
	err := s.conn(ctx).Where("unit_id = ?", b.UnitID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		active := b.Active
		if err := s.conn(ctx).Create(b).Error; err != nil {
			return err
		}
		if !active {
			return s.conn(ctx).Model(b).Update("active", false).Error
		}
		return nil
	case err != nil:
		return err
	}
	b.ID = existing.ID
	return s.conn(ctx).Model(&existing).Updates(map[string]interface{}{
		"name":        b.Name,
		"capacity":    b.Capacity,
		"geofence_id": b.GeofenceID,
		"active":      b.Active,
	}).Error
}
