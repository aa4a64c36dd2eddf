package fuel

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"fuel_tracker/internal/models"
	"fuel_tracker/internal/store"
)

// RecordProximity turns a geofence enter/exit into a vehicle-at-bowser
// event when the unit is a known vehicle and the geofence belongs to a
// bowser. Anything else is a lookup miss and yields nil.
func RecordProximity(ctx context.Context, st *store.Store, ev models.GeofenceEvent) (*models.ProximityEvent, error) {
	if ev.Kind != models.GeofenceEnter && ev.Kind != models.GeofenceExit {
		return nil, fmt.Errorf("%w: geofence event %d has kind %q", ErrInvalidEvent, ev.ID, ev.Kind)
	}
	fields := logrus.Fields{
		"geofence_event_id": ev.ID,
		"unit_id":           ev.UnitID,
		"geofence_id":       ev.GeofenceID,
	}

	vehicle, err := st.VehicleByUnit(ctx, ev.UnitID)
	if errors.Is(err, store.ErrNotFound) {
		logrus.WithFields(fields).Debug("Geofence event from a unit with no vehicle")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	bowser, err := st.BowserByGeofence(ctx, ev.GeofenceID)
	if errors.Is(err, store.ErrNotFound) {
		logrus.WithFields(fields).Debug("Geofence is not a dispensing point")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pe := &models.ProximityEvent{
		VehicleID:       vehicle.ID,
		BowserID:        bowser.ID,
		Kind:            ev.Kind,
		GeofenceEventID: ev.ID,
		RecordedAt:      ev.RecordedAt,
		Latitude:        ev.Latitude,
		Longitude:       ev.Longitude,
	}
	if err := st.CreateProximityEvent(ctx, pe); err != nil {
		return nil, err
	}
	return pe, nil
}
