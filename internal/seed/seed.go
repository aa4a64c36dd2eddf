// Package seed loads the fleet registry (drivers, vehicles, bowsers and their
// geofences) from a YAML file and an optional GeoJSON geofence file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"fuel_tracker/internal/geo"
	"fuel_tracker/internal/models"
	"fuel_tracker/internal/store"
)

var ErrUnknownBowser = errors.New("geofence refers to an unknown bowser")

type Fleet struct {
	Drivers  []Driver  `yaml:"drivers"`
	Vehicles []Vehicle `yaml:"vehicles"`
	Bowsers  []Bowser  `yaml:"bowsers"`
}

type Driver struct {
	Name         string `yaml:"name"`
	Role         string `yaml:"role"`
	IdentityCode string `yaml:"identity_code"`
}

type Vehicle struct {
	Name         string  `yaml:"name"`
	Registration string  `yaml:"registration"`
	UnitID       int64   `yaml:"unit_id"`
	FuelCapacity float64 `yaml:"fuel_capacity"`
	Active       *bool   `yaml:"active"`
}

type Bowser struct {
	Name     string    `yaml:"name"`
	UnitID   int64     `yaml:"unit_id"`
	Capacity float64   `yaml:"capacity"`
	Active   *bool     `yaml:"active"`
	Geofence *Geofence `yaml:"geofence"`
}

type Geofence struct {
	Name   string  `yaml:"name"`
	Lat    float64 `yaml:"lat"`
	Lon    float64 `yaml:"lon"`
	Radius float64 `yaml:"radius"`
}

// Summary counts what Apply wrote.
type Summary struct {
	Drivers  int
	Vehicles int
	Bowsers  int
}

func LoadFleet(r io.Reader) (*Fleet, error) {
	var f Fleet
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fleet: %w", err)
	}
	for _, d := range f.Drivers {
		if d.IdentityCode == "" {
			return nil, fmt.Errorf("driver %q has no identity_code", d.Name)
		}
	}
	for _, v := range f.Vehicles {
		if v.UnitID == 0 {
			return nil, fmt.Errorf("vehicle %q has no unit_id", v.Name)
		}
	}
	for _, b := range f.Bowsers {
		if b.UnitID == 0 {
			return nil, fmt.Errorf("bowser %q has no unit_id", b.Name)
		}
	}
	return &f, nil
}

// AttachFences assigns GeoJSON geofences to bowsers by unit id, replacing
// any geofence given inline.
func (f *Fleet) AttachFences(fences []geo.Fence) error {
	byUnit := make(map[int64]int, len(f.Bowsers))
	for i, b := range f.Bowsers {
		byUnit[b.UnitID] = i
	}
	for _, fence := range fences {
		if fence.BowserUnit == 0 {
			logrus.WithField("geofence", fence.Name).Warn("Geofence has no bowser; skipping")
			continue
		}
		i, ok := byUnit[fence.BowserUnit]
		if !ok {
			return fmt.Errorf("%w: %q -> unit %d", ErrUnknownBowser, fence.Name, fence.BowserUnit)
		}
		f.Bowsers[i].Geofence = &Geofence{
			Name:   fence.Name,
			Lat:    fence.Center.Lat,
			Lon:    fence.Center.Lon,
			Radius: fence.Radius,
		}
	}
	return nil
}

// Zones returns the bowser geofences as detector zones, for validation.
func (f *Fleet) Zones() []geo.Zone {
	zones := make([]geo.Zone, 0, len(f.Bowsers))
	for i, b := range f.Bowsers {
		if b.Geofence == nil {
			continue
		}
		zones = append(zones, geo.Zone{
			BowserID: uint(i + 1),
			Name:     b.Geofence.Name,
			Center:   geo.Point{Lat: b.Geofence.Lat, Lon: b.Geofence.Lon},
			Radius:   b.Geofence.Radius,
		})
	}
	return zones
}

// Apply validates the geofences and writes the fleet in one transaction.
// Overlapping geofences are rejected: proximity matching assumes at most one
// dispensing point contains any position.
func Apply(ctx context.Context, st *store.Store, f *Fleet, defaultRadius float64) (Summary, error) {
	var sum Summary
	for _, b := range f.Bowsers {
		if b.Geofence == nil {
			return sum, fmt.Errorf("bowser %q: %w", b.Name, store.ErrMissingGeofence)
		}
	}
	if err := geo.ValidateZones(f.Zones(), defaultRadius); err != nil {
		return sum, err
	}

	err := st.WithTx(ctx, func(tx *store.Store) error {
		for _, d := range f.Drivers {
			m := models.Driver{Name: d.Name, Role: d.Role, IdentityCode: d.IdentityCode}
			if m.Role == "" {
				m.Role = "driver"
			}
			if err := tx.UpsertDriver(ctx, &m); err != nil {
				return fmt.Errorf("driver %q: %w", d.Name, err)
			}
			sum.Drivers++
		}
		for _, v := range f.Vehicles {
			m := models.Vehicle{
				Name:         v.Name,
				Registration: v.Registration,
				UnitID:       v.UnitID,
				FuelCapacity: v.FuelCapacity,
				Active:       active(v.Active),
			}
			if err := tx.UpsertVehicle(ctx, &m); err != nil {
				return fmt.Errorf("vehicle %q: %w", v.Name, err)
			}
			sum.Vehicles++
		}
		for _, b := range f.Bowsers {
			g := models.Geofence{
				Name:      b.Geofence.Name,
				CenterLat: b.Geofence.Lat,
				CenterLon: b.Geofence.Lon,
				Radius:    b.Geofence.Radius,
			}
			if err := tx.UpsertGeofence(ctx, &g); err != nil {
				return fmt.Errorf("geofence %q: %w", g.Name, err)
			}
			m := models.Bowser{
				Name:       b.Name,
				UnitID:     b.UnitID,
				Capacity:   b.Capacity,
				GeofenceID: g.ID,
				Active:     active(b.Active),
			}
			if err := tx.UpsertBowser(ctx, &m); err != nil {
				return fmt.Errorf("bowser %q: %w", b.Name, err)
			}
			sum.Bowsers++
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	logrus.WithFields(logrus.Fields{
		"drivers":  sum.Drivers,
		"vehicles": sum.Vehicles,
		"bowsers":  sum.Bowsers,
	}).Info("Fleet registry seeded")
	return sum, nil
}

func active(b *bool) bool {
	return b == nil || *b
}
