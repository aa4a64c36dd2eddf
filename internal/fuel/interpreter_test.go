package fuel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuel_tracker/internal/models"
)

func TestLevelRiseEmitsOneReception(t *testing.T) {
	h := newHarness(t)
	h.level(vehicleUnit, 100, t0)
	h.level(vehicleUnit, 107, t0.Add(10*time.Minute))

	report := h.tick()
	assert.Equal(t, 2, report.Readings)
	assert.Equal(t, 1, report.FuelEvents)

	events := h.fuelEvents()
	require.Len(t, events, 1)
	assert.Equal(t, models.FuelReceived, events[0].Kind)
	assert.InDelta(t, 7, events[0].Amount, 1e-9)
	assert.Equal(t, vehicleUnit, events[0].UnitID)

	st, err := h.store.VehicleStatus(h.ctx, vehicleUnit)
	require.NoError(t, err)
	assert.Equal(t, 107.0, st.FuelLevel)
}

func TestSmallLevelRiseOnlyUpdatesStatus(t *testing.T) {
	h := newHarness(t)
	h.level(vehicleUnit, 100, t0)
	h.level(vehicleUnit, 104, t0.Add(10*time.Minute))

	report := h.tick()
	assert.Zero(t, report.FuelEvents)
	assert.Empty(t, h.fuelEvents())

	st, err := h.store.VehicleStatus(h.ctx, vehicleUnit)
	require.NoError(t, err)
	assert.Equal(t, 104.0, st.FuelLevel)
	assert.True(t, st.RecordedAt.Equal(t0.Add(10*time.Minute)))
}

func TestOdometerUpdatesStatusOnly(t *testing.T) {
	h := newHarness(t)
	h.level(vehicleUnit, 100, t0)
	for i, km := range []float64{15230, 15262} {
		require.NoError(t, h.store.AppendReading(h.ctx, &models.SensorReading{
			UnitID: vehicleUnit, SensorID: 3, SensorName: "Odometer", Value: km,
			RecordedAt: t0.Add(time.Duration(i+1) * time.Minute),
		}))
	}

	report := h.tick()
	assert.Equal(t, 3, report.Readings)
	assert.Zero(t, report.FuelEvents)

	st, err := h.store.VehicleStatus(h.ctx, vehicleUnit)
	require.NoError(t, err)
	assert.Equal(t, 15262.0, st.Odometer)
	assert.Equal(t, 100.0, st.FuelLevel, "odometer upsert leaves the level alone")
}

func TestStaleOrFallingReadingsEmitNothing(t *testing.T) {
	h := newHarness(t)
	h.level(vehicleUnit, 100, t0)
	h.level(vehicleUnit, 150, t0.Add(61*time.Minute)) // previous is too old
	h.level(vehicleUnit, 120, t0.Add(70*time.Minute)) // consumption

	h.tick()
	assert.Empty(t, h.fuelEvents())

	st, err := h.store.VehicleStatus(h.ctx, vehicleUnit)
	require.NoError(t, err)
	assert.Equal(t, 120.0, st.FuelLevel)
}

func TestGapOfExactlyOneHourStillCounts(t *testing.T) {
	h := newHarness(t)
	h.level(vehicleUnit, 100, t0)
	h.level(vehicleUnit, 120, t0.Add(time.Hour))

	h.tick()
	require.Len(t, h.fuelEvents(), 1)
}

func TestFlowIncreaseEmitsDispensation(t *testing.T) {
	h := newHarness(t)
	h.flow(1000, t0)
	h.flow(1000.5, t0.Add(time.Minute))
	h.flow(1000.5, t0.Add(2*time.Minute)) // no movement

	h.tick()
	events := h.fuelEvents()
	require.Len(t, events, 1)
	assert.Equal(t, models.FuelDispensed, events[0].Kind)
	assert.InDelta(t, 0.5, events[0].Amount, 1e-9)

	st, err := h.store.BowserStatus(h.ctx, bowserUnit)
	require.NoError(t, err)
	assert.Equal(t, 1000.5, st.TotalDispensed)
}

func TestUnknownSensorAndUnknownUnit(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.AppendReading(h.ctx, &models.SensorReading{
		UnitID: vehicleUnit, SensorID: 9, SensorName: "Cabin Temperature", Value: 20, RecordedAt: t0,
	}))
	require.NoError(t, h.store.AppendReading(h.ctx, &models.SensorReading{
		UnitID: vehicleUnit, SensorID: 9, SensorName: "Cabin Temperature", Value: 40, RecordedAt: t0.Add(time.Minute),
	}))
	// Level rise on a unit that is neither vehicle nor bowser: event, no status.
	h.level(9999, 10, t0)
	h.level(9999, 30, t0.Add(time.Minute))

	report := h.tick()
	assert.Equal(t, 4, report.Readings)
	assert.Equal(t, 1, report.FuelEvents)

	_, err := h.store.VehicleStatus(h.ctx, 9999)
	assert.Error(t, err)

	b, err := h.store.Backlog(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, b.Readings)
}

func TestGeofenceEventRecordsProximity(t *testing.T) {
	h := newHarness(t)
	lat, lon := northOfDepot(10)
	require.NoError(t, h.store.AppendGeofenceEvent(h.ctx, &models.GeofenceEvent{
		UnitID: vehicleUnit, GeofenceID: h.fleet.bowser.GeofenceID, Kind: models.GeofenceEnter,
		RecordedAt: t0, Latitude: lat, Longitude: lon,
	}))
	require.NoError(t, h.store.AppendGeofenceEvent(h.ctx, &models.GeofenceEvent{
		UnitID: 4242, GeofenceID: h.fleet.bowser.GeofenceID, Kind: models.GeofenceEnter, RecordedAt: t0,
	}))
	require.NoError(t, h.store.AppendGeofenceEvent(h.ctx, &models.GeofenceEvent{
		UnitID: vehicleUnit, GeofenceID: h.fleet.bowser.GeofenceID, Kind: "hover", RecordedAt: t0,
	}))

	report := h.tick()
	assert.Equal(t, 3, report.GeofenceEvents)
	assert.Equal(t, 1, report.Skipped)

	var prox []models.ProximityEvent
	require.NoError(t, h.store.DB().Find(&prox).Error)
	require.Len(t, prox, 1)
	assert.Equal(t, h.fleet.vehicle.ID, prox[0].VehicleID)
	assert.Equal(t, h.fleet.bowser.ID, prox[0].BowserID)
	assert.Equal(t, models.GeofenceEnter, prox[0].Kind)
}
