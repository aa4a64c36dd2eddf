package fuel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fuel_tracker/internal/geo"
	"fuel_tracker/internal/models"
	"fuel_tracker/internal/store"
)

// Matcher drives the transaction state machine:
// pending -> completed | discrepancy | partial | timed_out.
type Matcher struct {
	settings Settings
	newID    func() string
}

func NewMatcher(settings Settings) *Matcher {
	return &Matcher{settings: settings, newID: uuid.NewString}
}

// Open handles an identity scan. A transaction is opened when the tag
// belongs to a known driver, the unit to a known vehicle, and the scan
// position lies inside a bowser's geofence, unless the same triple already
// has a pending transaction inside the dedup window. It returns nil when
// nothing was opened.
func (m *Matcher) Open(ctx context.Context, st *store.Store, scan models.IdentityScan, det *geo.Detector) (*models.Transaction, error) {
	fields := logrus.Fields{
		"scan_id":       scan.ID,
		"unit_id":       scan.UnitID,
		"identity_code": scan.IdentityCode,
	}
	if scan.IdentityCode == "" {
		return nil, fmt.Errorf("%w: scan %d has no identity code", ErrInvalidEvent, scan.ID)
	}

	driver, err := st.DriverByCode(ctx, scan.IdentityCode)
	if errors.Is(err, store.ErrNotFound) {
		logrus.WithFields(fields).Warn("Unknown identity code")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	vehicle, err := st.VehicleByUnit(ctx, scan.UnitID)
	if errors.Is(err, store.ErrNotFound) {
		logrus.WithFields(fields).Warn("Scan from a unit with no vehicle")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	fields["driver_id"] = driver.ID
	fields["vehicle_id"] = vehicle.ID

	err = st.CreateAuthenticationEvent(ctx, &models.AuthenticationEvent{
		DriverID:     driver.ID,
		VehicleID:    vehicle.ID,
		IdentityCode: scan.IdentityCode,
		ScanID:       scan.ID,
		RecordedAt:   scan.RecordedAt,
		Latitude:     scan.Latitude,
		Longitude:    scan.Longitude,
	})
	if err != nil {
		return nil, err
	}

	pos, ok := geo.PointFrom(scan.Latitude, scan.Longitude)
	if !ok {
		return nil, fmt.Errorf("%w: scan %d has no position", ErrInvalidEvent, scan.ID)
	}
	if !pos.Valid() {
		return nil, fmt.Errorf("%w: scan %d has position %v", ErrInvalidEvent, scan.ID, pos)
	}

	zone, ok := det.Locate(pos)
	if !ok {
		logrus.WithFields(fields).Info("Driver authenticated away from any dispensing point")
		return nil, nil
	}
	fields["bowser_id"] = zone.BowserID

	dup, err := st.HasRecentPending(ctx, driver.ID, vehicle.ID, zone.BowserID, scan.RecordedAt.Add(-m.settings.DedupWindow))
	if err != nil {
		return nil, err
	}
	if dup {
		logrus.WithFields(fields).Debug("Pending transaction already covers this driver, vehicle and bowser")
		return nil, nil
	}

	tx := &models.Transaction{
		ID:        m.newID(),
		DriverID:  driver.ID,
		VehicleID: vehicle.ID,
		BowserID:  zone.BowserID,
		OpenedAt:  scan.RecordedAt,
		Status:    models.TransactionPending,
	}
	if err := st.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	if err := st.LinkScanTransaction(ctx, scan.ID, tx.ID); err != nil {
		return nil, err
	}

	logrus.WithFields(fields).WithField("transaction_id", tx.ID).Info("Transaction opened")
	return tx, nil
}

// Advance tries to close a pending transaction by pairing a dispensation from
// its bowser with a reception on its vehicle, then applies the timeout. It
// returns the transaction in its new state, or nil when it is still pending.
func (m *Matcher) Advance(ctx context.Context, st *store.Store, tx models.Transaction, now time.Time) (*models.Transaction, error) {
	if tx.Status.Terminal() {
		return nil, nil
	}
	fields := logrus.Fields{
		"transaction_id": tx.ID,
		"bowser_id":      tx.BowserID,
		"vehicle_id":     tx.VehicleID,
	}

	closed, err := m.match(ctx, st, tx, now, fields)
	if err != nil || closed != nil {
		return closed, err
	}

	if now.Sub(tx.OpenedAt) > m.settings.PendingTimeout {
		return m.close(ctx, st, tx, store.Closing{Status: models.TransactionTimedOut, ClosedAt: now}, fields)
	}
	return nil, nil
}

func (m *Matcher) match(ctx context.Context, st *store.Store, tx models.Transaction, now time.Time, fields logrus.Fields) (*models.Transaction, error) {
	// Both units are resolved up front so a lookup miss never leaves a
	// consumed dispensation behind.
	bowser, err := st.BowserByID(ctx, tx.BowserID)
	if errors.Is(err, store.ErrNotFound) {
		logrus.WithFields(fields).Warn("Transaction bowser not found; retrying next tick")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	vehicle, err := st.VehicleByID(ctx, tx.VehicleID)
	if errors.Is(err, store.ErrNotFound) {
		logrus.WithFields(fields).Warn("Transaction vehicle not found; retrying next tick")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	window := m.settings.MatchWindow
	disp, err := st.FirstUnconsumedFuelEvent(ctx, bowser.UnitID, models.FuelDispensed, tx.OpenedAt, tx.OpenedAt.Add(window))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := st.ConsumeFuelEvent(ctx, disp.ID, tx.ID); err != nil {
		return nil, err
	}
	dispensed := disp.Amount

	rec, err := st.FirstUnconsumedFuelEvent(ctx, vehicle.UnitID, models.FuelReceived, disp.RecordedAt, disp.RecordedAt.Add(window))
	if errors.Is(err, store.ErrNotFound) {
		return m.close(ctx, st, tx, store.Closing{
			Status:          models.TransactionPartial,
			DispensedAmount: &dispensed,
			ClosedAt:        now,
		}, fields)
	}
	if err != nil {
		return nil, err
	}
	if err := st.ConsumeFuelEvent(ctx, rec.ID, tx.ID); err != nil {
		return nil, err
	}
	received := rec.Amount

	v := EvaluateWithThreshold(dispensed, received, m.settings.DiscrepancyThreshold)
	return m.close(ctx, st, tx, store.Closing{
		Status:          v.Status,
		DispensedAmount: &dispensed,
		ReceivedAmount:  &received,
		Discrepancy:     &v.Discrepancy,
		DiscrepancyPct:  &v.DiscrepancyPct,
		ClosedAt:        now,
	}, fields)
}

func (m *Matcher) close(ctx context.Context, st *store.Store, tx models.Transaction, c store.Closing, fields logrus.Fields) (*models.Transaction, error) {
	if err := st.CloseTransaction(ctx, tx.ID, c); err != nil {
		return nil, err
	}
	closedAt := c.ClosedAt.UTC()
	tx.Status = c.Status
	tx.DispensedAmount = c.DispensedAmount
	tx.ReceivedAmount = c.ReceivedAmount
	tx.Discrepancy = c.Discrepancy
	tx.DiscrepancyPct = c.DiscrepancyPct
	tx.ClosedAt = &closedAt

	entry := logrus.WithFields(fields).WithField("status", c.Status)
	if c.DiscrepancyPct != nil {
		entry = entry.WithField("discrepancy_pct", *c.DiscrepancyPct)
	}
	if c.Status == models.TransactionDiscrepancy {
		entry.Warn("Transaction closed with discrepancy")
	} else {
		entry.Info("Transaction closed")
	}
	return &tx, nil
}
