package fuel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fuel_tracker/internal/geo"
	"fuel_tracker/internal/models"
	"fuel_tracker/internal/store"
)

// Changes is what a committed tick hands to publishers.
type Changes struct {
	TickID       string
	Vehicles     []models.VehicleStatus
	Bowsers      []models.BowserStatus
	Transactions []models.Transaction // opened or closed during the tick
}

// Publisher receives the outcome of every committed tick.
type Publisher interface {
	Publish(ctx context.Context, ch Changes) error
}

// TickReport summarises one pass.
type TickReport struct {
	TickID         string        `json:"tick_id"`
	Readings       int           `json:"readings"`
	FuelEvents     int           `json:"fuel_events"`
	GeofenceEvents int           `json:"geofence_events"`
	Scans          int           `json:"scans"`
	Opened         int           `json:"opened"`
	Completed      int           `json:"completed"`
	Discrepancies  int           `json:"discrepancies"`
	Partial        int           `json:"partial"`
	TimedOut       int           `json:"timed_out"`
	Skipped        int           `json:"skipped"`
	Duration       time.Duration `json:"duration"`
}

// Processor runs ticks: one pass over unprocessed events and pending
// transactions, inside one database transaction. Only one tick runs at a time.
type Processor struct {
	mu          sync.Mutex
	store       *store.Store
	settings    Settings
	clock       Clock
	interpreter *Interpreter
	matcher     *Matcher
	publishers  []Publisher
}

func NewProcessor(st *store.Store, settings Settings, clock Clock, publishers ...Publisher) *Processor {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Processor{
		store:       st,
		settings:    settings,
		clock:       clock,
		interpreter: NewInterpreter(settings),
		matcher:     NewMatcher(settings),
		publishers:  publishers,
	}
}

// AddPublisher registers a publisher for subsequent ticks.
func (p *Processor) AddPublisher(pub Publisher) {
	p.mu.Lock()
	p.publishers = append(p.publishers, pub)
	p.mu.Unlock()
}

type tickState struct {
	report  *TickReport
	units   map[int64]struct{}
	changed []models.Transaction
	log     *logrus.Entry
}

// ProcessTick runs one pass. Readings are interpreted first, then geofence
// events, then scans, then pending transactions are advanced oldest first.
// Any database error rolls the whole pass back.
func (p *Processor) ProcessTick(ctx context.Context) (*TickReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	ts := &tickState{
		report: &TickReport{TickID: uuid.NewString()},
		units:  make(map[int64]struct{}),
	}
	ts.log = logrus.WithField("tick_id", ts.report.TickID)

	err := p.store.WithTx(ctx, func(st *store.Store) error {
		if err := p.processReadings(ctx, st, ts); err != nil {
			return fmt.Errorf("readings: %w", err)
		}
		if err := p.processGeofenceEvents(ctx, st, ts); err != nil {
			return fmt.Errorf("geofence events: %w", err)
		}
		if err := p.processScans(ctx, st, ts); err != nil {
			return fmt.Errorf("scans: %w", err)
		}
		if err := p.advancePending(ctx, st, ts); err != nil {
			return fmt.Errorf("matching: %w", err)
		}
		return nil
	})
	ts.report.Duration = time.Since(start)
	if err != nil {
		ts.log.WithError(err).Error("Tick rolled back")
		return nil, fmt.Errorf("tick %s: %w", ts.report.TickID, err)
	}

	ts.log.WithFields(logrus.Fields{
		"readings":        ts.report.Readings,
		"fuel_events":     ts.report.FuelEvents,
		"geofence_events": ts.report.GeofenceEvents,
		"scans":           ts.report.Scans,
		"opened":          ts.report.Opened,
		"completed":       ts.report.Completed,
		"discrepancies":   ts.report.Discrepancies,
		"partial":         ts.report.Partial,
		"timed_out":       ts.report.TimedOut,
		"skipped":         ts.report.Skipped,
		"duration":        ts.report.Duration,
	}).Info("Tick committed")

	p.publish(ctx, ts)
	return ts.report, nil
}

// skip logs a per-event data problem. Anything else is fatal for the tick.
func skip(ts *tickState, err error, fields logrus.Fields) bool {
	if !errors.Is(err, ErrInvalidEvent) {
		return false
	}
	ts.report.Skipped++
	ts.log.WithFields(fields).WithError(err).Warn("Skipping event")
	return true
}

func (p *Processor) processReadings(ctx context.Context, st *store.Store, ts *tickState) error {
	readings, err := st.FetchUnprocessedReadings(ctx)
	if err != nil {
		return err
	}
	for _, r := range readings {
		ev, err := p.interpreter.Interpret(ctx, st, r)
		if err != nil && !skip(ts, err, logrus.Fields{"reading_id": r.ID}) {
			return err
		}
		if ev != nil {
			ts.report.FuelEvents++
		}
		if err := st.MarkReadingProcessed(ctx, r.ID); err != nil {
			return err
		}
		ts.units[r.UnitID] = struct{}{}
		ts.report.Readings++
	}
	return nil
}

func (p *Processor) processGeofenceEvents(ctx context.Context, st *store.Store, ts *tickState) error {
	events, err := st.FetchUnprocessedGeofenceEvents(ctx)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if _, err := RecordProximity(ctx, st, ev); err != nil && !skip(ts, err, logrus.Fields{"geofence_event_id": ev.ID}) {
			return err
		}
		if err := st.MarkGeofenceEventProcessed(ctx, ev.ID); err != nil {
			return err
		}
		ts.report.GeofenceEvents++
	}
	return nil
}

func (p *Processor) processScans(ctx context.Context, st *store.Store, ts *tickState) error {
	scans, err := st.FetchUnprocessedScans(ctx)
	if err != nil {
		return err
	}
	if len(scans) == 0 {
		return nil
	}

	zones, err := st.ActiveZones(ctx)
	if err != nil {
		return err
	}
	det := geo.NewDetector(zones, p.settings.DefaultGeofenceRadius)

	for _, sc := range scans {
		tx, err := p.matcher.Open(ctx, st, sc, det)
		if err != nil && !skip(ts, err, logrus.Fields{"scan_id": sc.ID}) {
			return err
		}
		if tx != nil {
			ts.report.Opened++
			ts.changed = append(ts.changed, *tx)
		}
		if err := st.MarkScanProcessed(ctx, sc.ID); err != nil {
			return err
		}
		ts.report.Scans++
	}
	return nil
}

func (p *Processor) advancePending(ctx context.Context, st *store.Store, ts *tickState) error {
	pending, err := st.PendingTransactions(ctx)
	if err != nil {
		return err
	}
	now := p.clock.Now()
	for _, tx := range pending {
		closed, err := p.matcher.Advance(ctx, st, tx, now)
		if err != nil {
			return fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		if closed == nil {
			continue
		}
		switch closed.Status {
		case models.TransactionCompleted:
			ts.report.Completed++
		case models.TransactionDiscrepancy:
			ts.report.Discrepancies++
		case models.TransactionPartial:
			ts.report.Partial++
		case models.TransactionTimedOut:
			ts.report.TimedOut++
		}
		ts.changed = append(ts.changed, *closed)
	}
	return nil
}

// publish runs after commit. Failures are logged and never undo the tick.
func (p *Processor) publish(ctx context.Context, ts *tickState) {
	if len(p.publishers) == 0 || (len(ts.units) == 0 && len(ts.changed) == 0) {
		return
	}

	ch := Changes{TickID: ts.report.TickID, Transactions: ts.changed}
	for unit := range ts.units {
		if v, err := p.store.VehicleStatus(ctx, unit); err == nil {
			ch.Vehicles = append(ch.Vehicles, *v)
		}
		if b, err := p.store.BowserStatus(ctx, unit); err == nil {
			ch.Bowsers = append(ch.Bowsers, *b)
		}
	}

	for _, pub := range p.publishers {
		if err := pub.Publish(ctx, ch); err != nil {
			ts.log.WithError(err).Warn("Publisher failed")
		}
	}
}
