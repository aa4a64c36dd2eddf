// Package ingest appends raw telemetry events from newline-delimited JSON
// into the event store. It stands in for the upstream tracking collector.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fuel_tracker/internal/models"
	"fuel_tracker/internal/store"
)

const (
	TypeReading  = "reading"
	TypeGeofence = "geofence"
	TypeScan     = "scan"
)

var ErrMalformedEvent = errors.New("malformed event")

// Event is one line of the input. Which fields apply depends on Type.
type Event struct {
	Type         string    `json:"type"`
	UnitID       int64     `json:"unit_id"`
	SensorID     int64     `json:"sensor_id,omitempty"`
	SensorName   string    `json:"sensor_name,omitempty"`
	Value        *float64  `json:"value,omitempty"`
	GeofenceID   uint      `json:"geofence_id,omitempty"`
	Kind         string    `json:"kind,omitempty"`
	IdentityCode string    `json:"identity_code,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
	Lat          *float64  `json:"lat,omitempty"`
	Lon          *float64  `json:"lon,omitempty"`
}

// Summary counts what was appended and what was skipped.
type Summary struct {
	Readings       int `json:"readings"`
	GeofenceEvents int `json:"geofence_events"`
	Scans          int `json:"scans"`
	Skipped        int `json:"skipped"`
}

// Ingester writes parsed events through the store. Strict makes a malformed
// line fail the whole file instead of being skipped.
type Ingester struct {
	store  *store.Store
	Strict bool
}

func New(st *store.Store) *Ingester {
	return &Ingester{store: st}
}

// ReadFrom appends every event in r inside a single transaction, so a file
// is either ingested completely or not at all.
func (in *Ingester) ReadFrom(ctx context.Context, r io.Reader) (Summary, error) {
	var sum Summary
	err := in.store.WithTx(ctx, func(tx *store.Store) error {
		sum = Summary{}
		scanner := bufio.NewScanner(r)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			var ev Event
			err := json.Unmarshal([]byte(line), &ev)
			if err == nil {
				err = ev.Validate()
			} else {
				err = fmt.Errorf("%w: %v", ErrMalformedEvent, err)
			}
			if err != nil {
				if in.Strict {
					return fmt.Errorf("line %d: %w", lineNum, err)
				}
				logrus.WithFields(logrus.Fields{"line": lineNum, "error": err}).Warn("Skipping event")
				sum.Skipped++
				continue
			}

			if err := appendEvent(ctx, tx, ev, &sum); err != nil {
				return fmt.Errorf("line %d: %w", lineNum, err)
			}
		}
		return scanner.Err()
	})
	if err != nil {
		return Summary{}, err
	}

	logrus.WithFields(logrus.Fields{
		"readings":        sum.Readings,
		"geofence_events": sum.GeofenceEvents,
		"scans":           sum.Scans,
		"skipped":         sum.Skipped,
	}).Info("Events ingested")
	return sum, nil
}

// Validate checks the fields required by the event's type.
func (ev Event) Validate() error {
	if ev.UnitID == 0 {
		return fmt.Errorf("%w: missing unit_id", ErrMalformedEvent)
	}
	if ev.RecordedAt.IsZero() {
		return fmt.Errorf("%w: missing recorded_at", ErrMalformedEvent)
	}
	if (ev.Lat == nil) != (ev.Lon == nil) {
		return fmt.Errorf("%w: lat and lon must be given together", ErrMalformedEvent)
	}
	switch ev.Type {
	case TypeReading:
		if ev.Value == nil {
			return fmt.Errorf("%w: reading without value", ErrMalformedEvent)
		}
	case TypeGeofence:
		k := models.GeofenceEventKind(ev.Kind)
		if k != models.GeofenceEnter && k != models.GeofenceExit {
			return fmt.Errorf("%w: geofence kind %q", ErrMalformedEvent, ev.Kind)
		}
	case TypeScan:
		if ev.IdentityCode == "" {
			return fmt.Errorf("%w: scan without identity_code", ErrMalformedEvent)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, ev.Type)
	}
	return nil
}

func appendEvent(ctx context.Context, st *store.Store, ev Event, sum *Summary) error {
	switch ev.Type {
	case TypeReading:
		sum.Readings++
		return st.AppendReading(ctx, &models.SensorReading{
			UnitID:     ev.UnitID,
			SensorID:   ev.SensorID,
			SensorName: ev.SensorName,
			Value:      *ev.Value,
			RecordedAt: ev.RecordedAt,
			Latitude:   ev.Lat,
			Longitude:  ev.Lon,
		})
	case TypeGeofence:
		sum.GeofenceEvents++
		return st.AppendGeofenceEvent(ctx, &models.GeofenceEvent{
			UnitID:     ev.UnitID,
			GeofenceID: ev.GeofenceID,
			Kind:       models.GeofenceEventKind(ev.Kind),
			RecordedAt: ev.RecordedAt,
			Latitude:   ev.Lat,
			Longitude:  ev.Lon,
		})
	default:
		sum.Scans++
		return st.AppendScan(ctx, &models.IdentityScan{
			UnitID:       ev.UnitID,
			IdentityCode: ev.IdentityCode,
			RecordedAt:   ev.RecordedAt,
			Latitude:     ev.Lat,
			Longitude:    ev.Lon,
		})
	}
}
