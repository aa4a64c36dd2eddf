package fuel

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"fuel_tracker/internal/models"
	"fuel_tracker/internal/store"
)

// Interpreter derives fuel events from consecutive readings of one sensor and
// keeps live status current.
type Interpreter struct {
	settings Settings
}

func NewInterpreter(settings Settings) *Interpreter {
	return &Interpreter{settings: settings}
}

// Interpret handles one reading. It returns the emitted FuelEvent, or nil
// when the delta did not qualify. Marking the reading processed is left to
// the caller so it happens whatever the outcome.
func (in *Interpreter) Interpret(ctx context.Context, st *store.Store, r models.SensorReading) (*models.FuelEvent, error) {
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return nil, fmt.Errorf("%w: reading %d has value %v", ErrInvalidEvent, r.ID, r.Value)
	}

	sensor, err := st.RegisterSensor(ctx, r.UnitID, r.SensorID, r.SensorName)
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"reading_id": r.ID,
		"unit_id":    r.UnitID,
		"sensor_id":  r.SensorID,
		"kind":       sensor.Kind,
	}

	switch sensor.Kind {
	case models.SensorKindLevel:
		if err := in.updateLevel(ctx, st, r, fields); err != nil {
			return nil, err
		}
	case models.SensorKindFlow:
		if err := in.updateFlow(ctx, st, r, fields); err != nil {
			return nil, err
		}
	case models.SensorKindOdometer:
		return nil, in.updateOdometer(ctx, st, r, fields)
	default:
		logrus.WithFields(fields).WithField("sensor_name", sensor.Name).Debug("Ignoring reading from unclassified sensor")
		return nil, nil
	}

	prev, err := st.PreviousReading(ctx, r.UnitID, r.SensorID, r.RecordedAt)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	delta := r.Value - prev.Value
	elapsed := r.RecordedAt.Sub(prev.RecordedAt)
	if elapsed > in.settings.MaxReadingGap {
		logrus.WithFields(fields).WithField("elapsed", elapsed).Debug("Previous reading is stale; no fuel event")
		return nil, nil
	}

	var kind models.FuelEventKind
	switch {
	case sensor.Kind == models.SensorKindLevel && delta > in.settings.ReceptionThreshold:
		kind = models.FuelReceived
	case sensor.Kind == models.SensorKindFlow && delta > 0:
		kind = models.FuelDispensed
	default:
		return nil, nil
	}

	ev := &models.FuelEvent{
		UnitID:     r.UnitID,
		Kind:       kind,
		Amount:     delta,
		RecordedAt: r.RecordedAt,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		ReadingID:  r.ID,
	}
	if err := st.CreateFuelEvent(ctx, ev); err != nil {
		return nil, err
	}

	logrus.WithFields(fields).WithFields(logrus.Fields{
		"fuel_event_id": ev.ID,
		"event_kind":    kind,
		"amount":        delta,
	}).Info("Fuel event recorded")
	return ev, nil
}

// A level sensor sits on a vehicle tank, or on the bowser's own tank.
func (in *Interpreter) updateLevel(ctx context.Context, st *store.Store, r models.SensorReading, fields logrus.Fields) error {
	if _, err := st.VehicleByUnit(ctx, r.UnitID); err == nil {
		return st.UpsertVehicleLevel(ctx, models.VehicleStatus{
			UnitID:     r.UnitID,
			FuelLevel:  r.Value,
			Latitude:   r.Latitude,
			Longitude:  r.Longitude,
			RecordedAt: r.RecordedAt,
		})
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if _, err := st.BowserByUnit(ctx, r.UnitID); err == nil {
		return st.UpsertBowserLevel(ctx, models.BowserStatus{
			UnitID:     r.UnitID,
			FuelLevel:  r.Value,
			Latitude:   r.Latitude,
			Longitude:  r.Longitude,
			RecordedAt: r.RecordedAt,
		})
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	logrus.WithFields(fields).Warn("Level reading from a unit with no vehicle or bowser; status not updated")
	return nil
}

func (in *Interpreter) updateOdometer(ctx context.Context, st *store.Store, r models.SensorReading, fields logrus.Fields) error {
	_, err := st.VehicleByUnit(ctx, r.UnitID)
	if errors.Is(err, store.ErrNotFound) {
		logrus.WithFields(fields).Debug("Odometer reading from a unit with no vehicle; status not updated")
		return nil
	}
	if err != nil {
		return err
	}
	return st.UpsertVehicleOdometer(ctx, models.VehicleStatus{
		UnitID:     r.UnitID,
		Odometer:   r.Value,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		RecordedAt: r.RecordedAt,
	})
}

func (in *Interpreter) updateFlow(ctx context.Context, st *store.Store, r models.SensorReading, fields logrus.Fields) error {
	_, err := st.BowserByUnit(ctx, r.UnitID)
	if errors.Is(err, store.ErrNotFound) {
		logrus.WithFields(fields).Warn("Flow reading from a unit with no bowser; status not updated")
		return nil
	}
	if err != nil {
		return err
	}
	return st.UpsertBowserFlow(ctx, models.BowserStatus{
		UnitID:         r.UnitID,
		TotalDispensed: r.Value,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		RecordedAt:     r.RecordedAt,
	})
}
