package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	nairobi := Point{Lat: -1.286389, Lon: 36.817223}
	mombasa := Point{Lat: -4.043477, Lon: 39.668206}

	assert.InDelta(t, 0, Distance(nairobi, nairobi), 1e-9)
	// ~440 km great-circle.
	assert.InDelta(t, 440_000, Distance(nairobi, mombasa), 5_000)
	assert.InDelta(t, Distance(nairobi, mombasa), Distance(mombasa, nairobi), 1e-6)
}

func TestDistanceOneDegreeOfLatitude(t *testing.T) {
	d := Distance(Point{Lat: 0, Lon: 0}, Point{Lat: 1, Lon: 0})
	assert.InDelta(t, 111_195, d, 1)
}

func TestPointFrom(t *testing.T) {
	lat, lon := 1.5, 2.5
	p, ok := PointFrom(&lat, &lon)
	assert.True(t, ok)
	assert.Equal(t, Point{Lat: 1.5, Lon: 2.5}, p)

	_, ok = PointFrom(&lat, nil)
	assert.False(t, ok)
}
