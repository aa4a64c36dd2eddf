package store

import (
	"context"
	"fmt"
	"time"

	"fuel_tracker/internal/models"
)

// PendingTransactions returns every open transaction, oldest first.
func (s *Store) PendingTransactions(ctx context.Context) ([]models.Transaction, error) {
	var out []models.Transaction
	err := s.conn(ctx).
		Where("status = ?", models.TransactionPending).
		Order("opened_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// HasRecentPending reports whether the (driver, vehicle, bowser) triple
// already has a pending transaction opened after since.
func (s *Store) HasRecentPending(ctx context.Context, driverID, vehicleID, bowserID uint, since time.Time) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Transaction{}).
		Where("driver_id = ? AND vehicle_id = ? AND bowser_id = ?", driverID, vehicleID, bowserID).
		Where("status = ? AND opened_at > ?", models.TransactionPending, since.UTC()).
		Count(&n).Error
	return n > 0, err
}

func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	tx.OpenedAt = tx.OpenedAt.UTC()
	if err := s.conn(ctx).Omit("Driver", "Vehicle", "Bowser").Create(tx).Error; err != nil {
		return fmt.Errorf("create transaction %s: %w", tx.ID, err)
	}
	return nil
}

// Closing carries the terminal state written by CloseTransaction.
type Closing struct {
	Status          models.TransactionStatus
	DispensedAmount *float64
	ReceivedAmount  *float64
	Discrepancy     *float64
	DiscrepancyPct  *float64
	ClosedAt        time.Time
}

// CloseTransaction moves a pending transaction to a terminal state. Anything
// that is no longer pending is left alone and ErrNotPending is returned.
func (s *Store) CloseTransaction(ctx context.Context, id string, c Closing) error {
	if !c.Status.Terminal() {
		return fmt.Errorf("close transaction %s: status %q is not terminal", id, c.Status)
	}
	closedAt := c.ClosedAt.UTC()
	res := s.conn(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionPending).
		Updates(map[string]interface{}{
			"status":           c.Status,
			"dispensed_amount": c.DispensedAmount,
			"received_amount":  c.ReceivedAmount,
			"discrepancy":      c.Discrepancy,
			"discrepancy_pct":  c.DiscrepancyPct,
			"closed_at":        &closedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	Status    models.TransactionStatus
	DriverID  uint
	VehicleID uint
	BowserID  uint
	Limit     int
	Offset    int
}

// ListTransactions returns matching transactions newest first, with the
// driver, vehicle and bowser attached.
func (s *Store) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, error) {
	q := s.conn(ctx).Preload("Driver").Preload("Vehicle").Preload("Bowser")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DriverID != 0 {
		q = q.Where("driver_id = ?", f.DriverID)
	}
	if f.VehicleID != 0 {
		q = q.Where("vehicle_id = ?", f.VehicleID)
	}
	if f.BowserID != 0 {
		q = q.Where("bowser_id = ?", f.BowserID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var out []models.Transaction
	err := q.Order("opened_at DESC, id DESC").Limit(limit).Offset(f.Offset).Find(&out).Error
	return out, err
}

// GetTransaction returns one transaction with its consumed fuel events.
func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, []models.FuelEvent, error) {
	var tx models.Transaction
	err := s.conn(ctx).Preload("Driver").Preload("Vehicle").Preload("Bowser").
		First(&tx, "id = ?", id).Error
	if err != nil {
		return nil, nil, notFound(err)
	}
	events, err := s.FuelEventsForTransaction(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &tx, events, nil
}

// CountByStatus tallies transactions per status.
func (s *Store) CountByStatus(ctx context.Context) (map[models.TransactionStatus]int64, error) {
	var rows []struct {
		Status models.TransactionStatus
		N      int64
	}
	err := s.conn(ctx).Model(&models.Transaction{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[models.TransactionStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

func (s *Store) CreateAuthenticationEvent(ctx context.Context, ev *models.AuthenticationEvent) error {
	ev.RecordedAt = ev.RecordedAt.UTC()
	return s.conn(ctx).Create(ev).Error
}

func (s *Store) CreateProximityEvent(ctx context.Context, ev *models.ProximityEvent) error {
	ev.RecordedAt = ev.RecordedAt.UTC()
	return s.conn(ctx).Create(ev).Error
}
