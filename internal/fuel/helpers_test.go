package fuel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"fuel_tracker/internal/config"
	"fuel_tracker/internal/models"
	"fuel_tracker/internal/store"
)

const (
	vehicleUnit  int64 = 1001
	vehicleUnit2 int64 = 1002
	bowserUnit   int64 = 2001

	levelSensor int64 = 1
	flowSensor  int64 = 2
)

var (
	t0        = time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	depotLat  = -1.3000
	depotLon  = 36.8000
	metersLat = 1 / 111_195.0
)

type fleet struct {
	driver   models.Driver
	driver2  models.Driver
	vehicle  models.Vehicle
	vehicle2 models.Vehicle
	bowser   models.Bowser
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	store *store.Store
	clock *FixedClock
	proc  *Processor
	pub   *recordingPublisher
	fleet fleet
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []Changes
}

func (r *recordingPublisher) Publish(_ context.Context, ch Changes) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ch)
	return nil
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := config.InitDB(config.DBConfig{Driver: "sqlite", SQLitePath: "file::memory:"}, gormlogger.Discard)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	h := &harness{
		t:     t,
		ctx:   context.Background(),
		store: store.New(db),
		clock: NewFixedClock(t0),
		pub:   &recordingPublisher{},
	}
	h.proc = NewProcessor(h.store, DefaultSettings(), h.clock, h.pub)
	h.seed()
	return h
}

func (h *harness) seed() {
	ctx, s := h.ctx, h.store
	f := &h.fleet

	f.driver = models.Driver{Name: "Amina", Role: "driver", IdentityCode: "IB-AMINA"}
	require.NoError(h.t, s.UpsertDriver(ctx, &f.driver))
	f.driver2 = models.Driver{Name: "Otieno", Role: "driver", IdentityCode: "IB-OTIENO"}
	require.NoError(h.t, s.UpsertDriver(ctx, &f.driver2))

	f.vehicle = models.Vehicle{Name: "Truck 1", Registration: "KDA 001A", UnitID: vehicleUnit, Active: true}
	require.NoError(h.t, s.UpsertVehicle(ctx, &f.vehicle))
	f.vehicle2 = models.Vehicle{Name: "Truck 2", Registration: "KDA 002A", UnitID: vehicleUnit2, Active: true}
	require.NoError(h.t, s.UpsertVehicle(ctx, &f.vehicle2))

	g := models.Geofence{Name: "Depot", CenterLat: depotLat, CenterLon: depotLon, Radius: 50}
	require.NoError(h.t, s.UpsertGeofence(ctx, &g))
	f.bowser = models.Bowser{Name: "Bowser 1", UnitID: bowserUnit, GeofenceID: g.ID, Active: true}
	require.NoError(h.t, s.UpsertBowser(ctx, &f.bowser))
}

// northOfDepot returns a position the given distance from the depot center.
func northOfDepot(meters float64) (*float64, *float64) {
	lat := depotLat + meters*metersLat
	lon := depotLon
	return &lat, &lon
}

func (h *harness) level(unit int64, value float64, at time.Time) {
	h.t.Helper()
	require.NoError(h.t, h.store.AppendReading(h.ctx, &models.SensorReading{
		UnitID: unit, SensorID: levelSensor, SensorName: "Fuel Level Sensor", Value: value, RecordedAt: at,
	}))
}

func (h *harness) flow(value float64, at time.Time) {
	h.t.Helper()
	lat, lon := northOfDepot(0)
	require.NoError(h.t, h.store.AppendReading(h.ctx, &models.SensorReading{
		UnitID: bowserUnit, SensorID: flowSensor, SensorName: "Fuel Flow Meter", Value: value, RecordedAt: at,
		Latitude: lat, Longitude: lon,
	}))
}

func (h *harness) scan(unit int64, code string, metersFromDepot float64, at time.Time) {
	h.t.Helper()
	lat, lon := northOfDepot(metersFromDepot)
	require.NoError(h.t, h.store.AppendScan(h.ctx, &models.IdentityScan{
		UnitID: unit, IdentityCode: code, RecordedAt: at, Latitude: lat, Longitude: lon,
	}))
}

func (h *harness) tick() *TickReport {
	h.t.Helper()
	report, err := h.proc.ProcessTick(h.ctx)
	require.NoError(h.t, err)
	return report
}

func (h *harness) transactions() []models.Transaction {
	h.t.Helper()
	var out []models.Transaction
	require.NoError(h.t, h.store.DB().Order("opened_at ASC").Find(&out).Error)
	return out
}

func (h *harness) fuelEvents() []models.FuelEvent {
	h.t.Helper()
	var out []models.FuelEvent
	require.NoError(h.t, h.store.DB().Order("recorded_at ASC, id ASC").Find(&out).Error)
	return out
}
