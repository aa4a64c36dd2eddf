package geo

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

var (
	ErrOverlappingGeofences = errors.New("geofences overlap")
	ErrInvalidGeofence      = errors.New("invalid geofence")
)

// Zone is a bowser's dispensing area. A zero Radius means the detector's
// default radius applies.
type Zone struct {
	BowserID   uint
	GeofenceID uint
	Name       string
	Center     Point
	Radius     float64
}

func (z Zone) radius(def float64) float64 {
	if z.Radius > 0 {
		return z.Radius
	}
	return def
}

// Detector answers "which dispensing point is this position at".
// Zones are checked in ascending bowser id order and the first match wins.
type Detector struct {
	zones         []Zone
	defaultRadius float64
}

// NewDetector sorts the zones and warns when they overlap. Overlap does not
// stop the detector; the first zone in bowser order still wins.
func NewDetector(zones []Zone, defaultRadius float64) *Detector {
	sorted := make([]Zone, len(zones))
	copy(sorted, zones)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BowserID < sorted[j].BowserID
	})

	if err := ValidateZones(sorted, defaultRadius); err != nil {
		logrus.WithError(err).Warn("Geofence configuration is inconsistent; first match in bowser order applies")
	}
	return &Detector{zones: sorted, defaultRadius: defaultRadius}
}

// Locate returns the first zone whose disc contains p.
func (d *Detector) Locate(p Point) (Zone, bool) {
	for _, z := range d.zones {
		if Distance(p, z.Center) <= z.radius(d.defaultRadius) {
			return z, true
		}
	}
	return Zone{}, false
}

// Zones returns the zones in match order.
func (d *Detector) Zones() []Zone {
	return d.zones
}

// ValidateZones checks coordinates and radii and that no two discs intersect.
func ValidateZones(zones []Zone, defaultRadius float64) error {
	for _, z := range zones {
		if !z.Center.Valid() {
			return fmt.Errorf("%w: %q has center %v", ErrInvalidGeofence, z.Name, z.Center)
		}
		if z.Radius < 0 {
			return fmt.Errorf("%w: %q has negative radius %v", ErrInvalidGeofence, z.Name, z.Radius)
		}
	}
	for i := 0; i < len(zones); i++ {
		for j := i + 1; j < len(zones); j++ {
			a, b := zones[i], zones[j]
			d := Distance(a.Center, b.Center)
			if d < a.radius(defaultRadius)+b.radius(defaultRadius) {
				return fmt.Errorf("%w: %q and %q are %.1fm apart", ErrOverlappingGeofences, a.Name, b.Name, d)
			}
		}
	}
	return nil
}
