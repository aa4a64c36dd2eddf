package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"fuel_tracker/internal/config"
	"fuel_tracker/internal/models"
)

var t0 = time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := config.InitDB(config.DBConfig{Driver: "sqlite", SQLitePath: "file::memory:"}, gormlogger.Discard)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return New(db)
}

func ptr(f float64) *float64 { return &f }

func TestClassifySensor(t *testing.T) {
	cases := map[string]models.SensorKind{
		"fuel_level":        models.SensorKindLevel,
		"Fuel Level Sensor": models.SensorKindLevel,
		"FUEL-LEVEL-2":      models.SensorKindLevel,
		"fuel_flow":         models.SensorKindFlow,
		"Fuel Flow Meter":   models.SensorKindFlow,
		"flow meter":        models.SensorKindFlow,
		"Odometer":          models.SensorKindOdometer,
		"CAN mileage":       models.SensorKindOdometer,
		"temperature":       models.SensorKindUnknown,
		"":                  models.SensorKindUnknown,
	}
	for name, want := range cases {
		assert.Equal(t, want, ClassifySensor(name), name)
	}
}

func TestRegisterSensorResolvesKindOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.RegisterSensor(ctx, 1001, 1, "Fuel Level Sensor")
	require.NoError(t, err)
	assert.Equal(t, models.SensorKindLevel, first.Kind)

	// A later rename does not reclassify the sensor.
	again, err := s.RegisterSensor(ctx, 1001, 1, "Fuel Flow Meter")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, models.SensorKindLevel, again.Kind)
}

func TestMarkProcessedFlipsOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	r := &models.SensorReading{UnitID: 1, SensorID: 1, SensorName: "fuel_level", Value: 10, RecordedAt: t0}
	require.NoError(t, s.AppendReading(ctx, r))

	pending, err := s.FetchUnprocessedReadings(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.MarkReadingProcessed(ctx, r.ID))
	assert.ErrorIs(t, s.MarkReadingProcessed(ctx, r.ID), ErrAlreadyProcessed)

	pending, err = s.FetchUnprocessedReadings(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFetchUnprocessedOrdersByTime(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, off := range []time.Duration{20, 5, 10} {
		require.NoError(t, s.AppendScan(ctx, &models.IdentityScan{
			UnitID: 1, IdentityCode: "A", RecordedAt: t0.Add(off * time.Minute),
		}))
	}
	scans, err := s.FetchUnprocessedScans(ctx)
	require.NoError(t, err)
	require.Len(t, scans, 3)
	assert.True(t, scans[0].RecordedAt.Equal(t0.Add(5*time.Minute)))
	assert.True(t, scans[2].RecordedAt.Equal(t0.Add(20*time.Minute)))
}

func TestPreviousReading(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	add := func(unit, sensor int64, v float64, at time.Time) *models.SensorReading {
		r := &models.SensorReading{UnitID: unit, SensorID: sensor, Value: v, RecordedAt: at}
		require.NoError(t, s.AppendReading(ctx, r))
		return r
	}
	add(1, 1, 90, t0)
	add(1, 1, 100, t0.Add(5*time.Minute))
	add(1, 2, 500, t0.Add(6*time.Minute)) // other sensor
	add(2, 1, 300, t0.Add(6*time.Minute)) // other unit
	cur := add(1, 1, 107, t0.Add(10*time.Minute))

	prev, err := s.PreviousReading(ctx, 1, 1, cur.RecordedAt)
	require.NoError(t, err)
	assert.Equal(t, 100.0, prev.Value)

	_, err = s.PreviousReading(ctx, 1, 1, t0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConsumeFuelEventOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ev := &models.FuelEvent{UnitID: 2001, Kind: models.FuelDispensed, Amount: 80, RecordedAt: t0, ReadingID: 1}
	require.NoError(t, s.CreateFuelEvent(ctx, ev))

	found, err := s.FirstUnconsumedFuelEvent(ctx, 2001, models.FuelDispensed, t0, t0.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, ev.ID, found.ID)

	require.NoError(t, s.ConsumeFuelEvent(ctx, ev.ID, "tx-1"))
	assert.ErrorIs(t, s.ConsumeFuelEvent(ctx, ev.ID, "tx-2"), ErrAlreadyConsumed)

	_, err = s.FirstUnconsumedFuelEvent(ctx, 2001, models.FuelDispensed, t0, t0.Add(30*time.Minute))
	assert.ErrorIs(t, err, ErrNotFound)

	events, err := s.FuelEventsForTransaction(ctx, "tx-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestFirstUnconsumedFuelEventWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i, off := range []time.Duration{-1, 30, 31, 12} {
		require.NoError(t, s.CreateFuelEvent(ctx, &models.FuelEvent{
			UnitID: 7, Kind: models.FuelReceived, Amount: float64(10 + i),
			RecordedAt: t0.Add(off * time.Minute), ReadingID: uint(i + 1),
		}))
	}
	// Before the window and after it are ignored; earliest inside wins.
	ev, err := s.FirstUnconsumedFuelEvent(ctx, 7, models.FuelReceived, t0, t0.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 13.0, ev.Amount)

	require.NoError(t, s.ConsumeFuelEvent(ctx, ev.ID, "tx"))
	ev, err = s.FirstUnconsumedFuelEvent(ctx, 7, models.FuelReceived, t0, t0.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 11.0, ev.Amount) // window end is inclusive

	_, err = s.FirstUnconsumedFuelEvent(ctx, 7, models.FuelDispensed, t0, t0.Add(30*time.Minute))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertVehicleLevelKeepsNewest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertVehicleLevel(ctx, models.VehicleStatus{UnitID: 1, FuelLevel: 100, RecordedAt: t0, Latitude: ptr(-1.3), Longitude: ptr(36.8)}))
	require.NoError(t, s.UpsertVehicleLevel(ctx, models.VehicleStatus{UnitID: 1, FuelLevel: 104, RecordedAt: t0.Add(10 * time.Minute)}))

	st, err := s.VehicleStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 104.0, st.FuelLevel)
	// No position on the newer reading: the last known one stays.
	require.NotNil(t, st.Latitude)
	assert.Equal(t, -1.3, *st.Latitude)

	// An older observation does not overwrite.
	require.NoError(t, s.UpsertVehicleLevel(ctx, models.VehicleStatus{UnitID: 1, FuelLevel: 50, RecordedAt: t0.Add(5 * time.Minute)}))
	st, err = s.VehicleStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 104.0, st.FuelLevel)
}

func TestUpsertBowserFlowAndLevel(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertBowserFlow(ctx, models.BowserStatus{UnitID: 9, TotalDispensed: 1200, RecordedAt: t0}))
	require.NoError(t, s.UpsertBowserLevel(ctx, models.BowserStatus{UnitID: 9, FuelLevel: 3000, RecordedAt: t0.Add(time.Minute)}))

	st, err := s.BowserStatus(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, st.TotalDispensed)
	assert.Equal(t, 3000.0, st.FuelLevel)

	all, err := s.ListBowserStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func seedFleet(t *testing.T, s *Store) (models.Driver, models.Vehicle, models.Bowser) {
	t.Helper()
	ctx := context.Background()

	d := models.Driver{Name: "Amina", Role: "driver", IdentityCode: "IB-01"}
	require.NoError(t, s.UpsertDriver(ctx, &d))
	v := models.Vehicle{Name: "Truck 1", UnitID: 1001, Active: true}
	require.NoError(t, s.UpsertVehicle(ctx, &v))
	g := models.Geofence{Name: "Depot", CenterLat: -1.3, CenterLon: 36.8, Radius: 50}
	require.NoError(t, s.UpsertGeofence(ctx, &g))
	b := models.Bowser{Name: "Bowser 1", UnitID: 2001, GeofenceID: g.ID, Active: true}
	require.NoError(t, s.UpsertBowser(ctx, &b))
	return d, v, b
}

func TestRegistryUpsertAndLookups(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d, v, b := seedFleet(t, s)

	// Upserting again updates in place.
	d2 := models.Driver{Name: "Amina W.", Role: "driver", IdentityCode: "IB-01"}
	require.NoError(t, s.UpsertDriver(ctx, &d2))
	assert.Equal(t, d.ID, d2.ID)
	got, err := s.DriverByCode(ctx, "IB-01")
	require.NoError(t, err)
	assert.Equal(t, "Amina W.", got.Name)

	gotV, err := s.VehicleByUnit(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, v.ID, gotV.ID)

	gotB, err := s.BowserByGeofence(ctx, b.GeofenceID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, gotB.ID)

	_, err = s.VehicleByUnit(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.DriverByCode(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	zones, err := s.ActiveZones(ctx)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, b.ID, zones[0].BowserID)
	assert.Equal(t, 50.0, zones[0].Radius)
}

func TestInactiveBowserHasNoZone(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	g := models.Geofence{Name: "Yard", CenterLat: 0, CenterLon: 0}
	require.NoError(t, s.UpsertGeofence(ctx, &g))
	b := models.Bowser{Name: "Spare", UnitID: 3001, GeofenceID: g.ID, Active: false}
	require.NoError(t, s.UpsertBowser(ctx, &b))

	zones, err := s.ActiveZones(ctx)
	require.NoError(t, err)
	assert.Empty(t, zones)

	assert.ErrorIs(t, s.UpsertBowser(ctx, &models.Bowser{Name: "No fence", UnitID: 3002}), ErrMissingGeofence)
}

func TestTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d, v, b := seedFleet(t, s)

	tx := &models.Transaction{ID: "tx-1", DriverID: d.ID, VehicleID: v.ID, BowserID: b.ID, OpenedAt: t0, Status: models.TransactionPending}
	require.NoError(t, s.CreateTransaction(ctx, tx))

	recent, err := s.HasRecentPending(ctx, d.ID, v.ID, b.ID, t0.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, recent)
	recent, err = s.HasRecentPending(ctx, d.ID, v.ID, b.ID, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, recent)

	pending, err := s.PendingTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	err = s.CloseTransaction(ctx, "tx-1", Closing{
		Status: models.TransactionCompleted, DispensedAmount: ptr(80), ReceivedAmount: ptr(76),
		Discrepancy: ptr(4), DiscrepancyPct: ptr(5), ClosedAt: t0.Add(time.Hour),
	})
	require.NoError(t, err)

	// Terminal states are never revisited.
	err = s.CloseTransaction(ctx, "tx-1", Closing{Status: models.TransactionTimedOut, ClosedAt: t0.Add(2 * time.Hour)})
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Error(t, s.CloseTransaction(ctx, "tx-1", Closing{Status: models.TransactionPending}))

	got, events, err := s.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, got.Status)
	require.NotNil(t, got.ReceivedAmount)
	assert.Equal(t, 76.0, *got.ReceivedAmount)
	require.NotNil(t, got.Driver)
	assert.Equal(t, "Amina", got.Driver.Name)
	assert.Empty(t, events)

	list, err := s.ListTransactions(ctx, TransactionFilter{Status: models.TransactionCompleted})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = s.ListTransactions(ctx, TransactionFilter{Status: models.TransactionPending})
	require.NoError(t, err)
	assert.Empty(t, list)

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.TransactionCompleted])

	_, _, err = s.GetTransaction(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(tx *Store) error {
		require.NoError(t, tx.AppendReading(ctx, &models.SensorReading{UnitID: 1, SensorID: 1, RecordedAt: t0}))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	b, err := s.Backlog(ctx)
	require.NoError(t, err)
	assert.Zero(t, b.Readings)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", ErrNotFound, false},
		{"deadline", context.DeadlineExceeded, true},
		{"bad conn", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"network", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
		{"pg connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"pg serialization", fmt.Errorf("close: %w", &pgconn.PgError{Code: "40001"}), true},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"pg too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"pg admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"pg cannot connect now", &pgconn.PgError{Code: "57P03"}, true},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"pg undefined table", &pgconn.PgError{Code: "42P01"}, false},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"sqlite locked", fmt.Errorf("tick: %w", sqlite3.Error{Code: sqlite3.ErrLocked}), true},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
