package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// offsetNorth moves p by meters along its meridian.
func offsetNorth(p Point, meters float64) Point {
	return Point{Lat: p.Lat + meters/111_195.0, Lon: p.Lon}
}

var depot = Point{Lat: -1.3000, Lon: 36.8000}

func TestLocateInsideRadius(t *testing.T) {
	d := NewDetector([]Zone{{BowserID: 7, GeofenceID: 3, Name: "depot", Center: depot, Radius: 50}}, 50)

	z, ok := d.Locate(offsetNorth(depot, 40))
	require.True(t, ok)
	assert.Equal(t, uint(7), z.BowserID)

	_, ok = d.Locate(offsetNorth(depot, 60))
	assert.False(t, ok)
}

func TestLocateDefaultRadius(t *testing.T) {
	d := NewDetector([]Zone{{BowserID: 1, Center: depot}}, 100)

	_, ok := d.Locate(offsetNorth(depot, 90))
	assert.True(t, ok)
	_, ok = d.Locate(offsetNorth(depot, 110))
	assert.False(t, ok)
}

func TestLocateFirstMatchByBowserID(t *testing.T) {
	// Overlapping on purpose: the lower bowser id wins regardless of input order.
	zones := []Zone{
		{BowserID: 9, Name: "b9", Center: offsetNorth(depot, 20), Radius: 50},
		{BowserID: 2, Name: "b2", Center: depot, Radius: 50},
	}
	d := NewDetector(zones, 50)

	z, ok := d.Locate(offsetNorth(depot, 10))
	require.True(t, ok)
	assert.Equal(t, uint(2), z.BowserID)
	assert.Equal(t, uint(2), d.Zones()[0].BowserID)
}

func TestValidateZones(t *testing.T) {
	ok := []Zone{
		{Name: "a", Center: depot, Radius: 50},
		{Name: "b", Center: offsetNorth(depot, 150), Radius: 50},
	}
	assert.NoError(t, ValidateZones(ok, 50))

	overlapping := []Zone{
		{Name: "a", Center: depot, Radius: 50},
		{Name: "b", Center: offsetNorth(depot, 80), Radius: 50},
	}
	assert.ErrorIs(t, ValidateZones(overlapping, 50), ErrOverlappingGeofences)

	// Default radius counts toward overlap when a zone declares none.
	assert.ErrorIs(t, ValidateZones([]Zone{
		{Name: "a", Center: depot},
		{Name: "b", Center: offsetNorth(depot, 150)},
	}, 100), ErrOverlappingGeofences)

	assert.ErrorIs(t, ValidateZones([]Zone{{Name: "bad", Center: Point{Lat: 91}}}, 50), ErrInvalidGeofence)
	assert.ErrorIs(t, ValidateZones([]Zone{{Name: "neg", Center: depot, Radius: -1}}, 50), ErrInvalidGeofence)
}
