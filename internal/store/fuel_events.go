package store

import (
	"context"
	"fmt"
	"time"

	"fuel_tracker/internal/models"
)

func (s *Store) CreateFuelEvent(ctx context.Context, ev *models.FuelEvent) error {
	ev.RecordedAt = ev.RecordedAt.UTC()
	if err := s.conn(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("create fuel event for reading %d: %w", ev.ReadingID, err)
	}
	return nil
}

// FirstUnconsumedFuelEvent returns the earliest event of the given kind from
// unitID in the inclusive window [from, to] that no transaction has claimed.
func (s *Store) FirstUnconsumedFuelEvent(ctx context.Context, unitID int64, kind models.FuelEventKind, from, to time.Time) (*models.FuelEvent, error) {
	var ev models.FuelEvent
	err := s.conn(ctx).
		Where("unit_id = ? AND kind = ? AND transaction_id IS NULL", unitID, kind).
		Where("recorded_at >= ? AND recorded_at <= ?", from.UTC(), to.UTC()).
		Order("recorded_at ASC, id ASC").
		First(&ev).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &ev, nil
}

// ConsumeFuelEvent claims an event for a transaction. An event is claimed at
// most once; a second claim returns ErrAlreadyConsumed.
func (s *Store) ConsumeFuelEvent(ctx context.Context, id uint, txID string) error {
	res := s.conn(ctx).Model(&models.FuelEvent{}).
		Where("id = ? AND transaction_id IS NULL", id).
		Update("transaction_id", txID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyConsumed
	}
	return nil
}

// FuelEventsForTransaction lists the events a transaction consumed.
func (s *Store) FuelEventsForTransaction(ctx context.Context, txID string) ([]models.FuelEvent, error) {
	var out []models.FuelEvent
	err := s.conn(ctx).
		Where("transaction_id = ?", txID).
		Order("recorded_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListFuelEvents returns the most recent events, newest first.
func (s *Store) ListFuelEvents(ctx context.Context, unitID int64, limit int) ([]models.FuelEvent, error) {
	var out []models.FuelEvent
	q := s.conn(ctx).Order("recorded_at DESC, id DESC").Limit(limit)
	if unitID != 0 {
		q = q.Where("unit_id = ?", unitID)
	}
	err := q.Find(&out).Error
	return out, err
}
