package store

import (
	"context"
	"fmt"
	"time"

	"fuel_tracker/internal/models"
)

// AppendReading stores a raw sensor reading from the ingestion side.
func (s *Store) AppendReading(ctx context.Context, r *models.SensorReading) error {
	r.ID = 0
	r.RecordedAt = r.RecordedAt.UTC()
	r.Processed = false
	if err := s.conn(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("append reading: %w", err)
	}
	return nil
}

func (s *Store) AppendGeofenceEvent(ctx context.Context, e *models.GeofenceEvent) error {
	e.ID = 0
	e.RecordedAt = e.RecordedAt.UTC()
	e.Processed = false
	if err := s.conn(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("append geofence event: %w", err)
	}
	return nil
}

func (s *Store) AppendScan(ctx context.Context, sc *models.IdentityScan) error {
	sc.ID = 0
	sc.RecordedAt = sc.RecordedAt.UTC()
	sc.Processed = false
	sc.TransactionID = nil
	if err := s.conn(ctx).Create(sc).Error; err != nil {
		return fmt.Errorf("append scan: %w", err)
	}
	return nil
}

// FetchUnprocessedReadings returns pending readings in timestamp order.
func (s *Store) FetchUnprocessedReadings(ctx context.Context) ([]models.SensorReading, error) {
	var out []models.SensorReading
	err := s.conn(ctx).
		Where("processed = ?", false).
		Order("recorded_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) FetchUnprocessedGeofenceEvents(ctx context.Context) ([]models.GeofenceEvent, error) {
	var out []models.GeofenceEvent
	err := s.conn(ctx).
		Where("processed = ?", false).
		Order("recorded_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) FetchUnprocessedScans(ctx context.Context) ([]models.IdentityScan, error) {
	var out []models.IdentityScan
	err := s.conn(ctx).
		Where("processed = ?", false).
		Order("recorded_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// markProcessed flips the flag exactly once.
func (s *Store) markProcessed(ctx context.Context, model interface{}, id uint) error {
	res := s.conn(ctx).Model(model).
		Where("id = ? AND processed = ?", id, false).
		Update("processed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}

func (s *Store) MarkReadingProcessed(ctx context.Context, id uint) error {
	return s.markProcessed(ctx, &models.SensorReading{}, id)
}

func (s *Store) MarkGeofenceEventProcessed(ctx context.Context, id uint) error {
	return s.markProcessed(ctx, &models.GeofenceEvent{}, id)
}

func (s *Store) MarkScanProcessed(ctx context.Context, id uint) error {
	return s.markProcessed(ctx, &models.IdentityScan{}, id)
}

// LinkScanTransaction back-references the transaction a scan opened.
func (s *Store) LinkScanTransaction(ctx context.Context, scanID uint, txID string) error {
	return s.conn(ctx).Model(&models.IdentityScan{}).
		Where("id = ? AND transaction_id IS NULL", scanID).
		Update("transaction_id", txID).Error
}

// PreviousReading returns the most recent reading of the same unit and
// sensor strictly before the given time.
func (s *Store) PreviousReading(ctx context.Context, unitID, sensorID int64, before time.Time) (*models.SensorReading, error) {
	var r models.SensorReading
	err := s.conn(ctx).
		Where("unit_id = ? AND sensor_id = ? AND recorded_at < ?", unitID, sensorID, before.UTC()).
		Order("recorded_at DESC, id DESC").
		First(&r).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// Backlog counts raw events still waiting for a tick.
type Backlog struct {
	Readings       int64 `json:"readings"`
	GeofenceEvents int64 `json:"geofence_events"`
	Scans          int64 `json:"scans"`
}

func (s *Store) Backlog(ctx context.Context) (Backlog, error) {
	var b Backlog
	db := s.conn(ctx)
	if err := db.Model(&models.SensorReading{}).Where("processed = ?", false).Count(&b.Readings).Error; err != nil {
		return b, err
	}
	if err := db.Model(&models.GeofenceEvent{}).Where("processed = ?", false).Count(&b.GeofenceEvents).Error; err != nil {
		return b, err
	}
	if err := db.Model(&models.IdentityScan{}).Where("processed = ?", false).Count(&b.Scans).Error; err != nil {
		return b, err
	}
	return b, nil
}
