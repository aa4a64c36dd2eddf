// Package scheduler owns the single tick worker. Scheduled ticks and
// on-demand refresh requests are served by the same goroutine, so two ticks
// never overlap.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fuel_tracker/internal/fuel"
	"fuel_tracker/internal/store"
)

var (
	ErrQueueFull = errors.New("refresh queue is full")
	ErrStopped   = errors.New("scheduler is stopped")
)

type Status string

const (
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusInProgress Status = "in_progress"
)

const historySize = 100

// Ticker runs one processing pass.
type Ticker interface {
	ProcessTick(ctx context.Context) (*fuel.TickReport, error)
}

// RefreshResult is what a refresh caller gets back.
type RefreshResult struct {
	RequestID string           `json:"request_id"`
	Status    Status           `json:"status"`
	Message   string           `json:"message"`
	Report    *fuel.TickReport `json:"report,omitempty"`
	Error     string           `json:"error,omitempty"`
}

type request struct {
	id   string
	done chan RefreshResult
}

type Scheduler struct {
	ticker   Ticker
	interval time.Duration
	timeout  time.Duration
	requests chan *request
	stopped  chan struct{}

	mu      sync.Mutex
	results map[string]RefreshResult
	order   []string
	last    *RefreshResult
}

func New(t Ticker, interval, timeout time.Duration, queueSize int) *Scheduler {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Scheduler{
		ticker:   t,
		interval: interval,
		timeout:  timeout,
		requests: make(chan *request, queueSize),
		stopped:  make(chan struct{}),
		results:  make(map[string]RefreshResult),
	}
}

// Run ticks once immediately, then every interval, serving refresh requests
// in between. It returns when ctx is cancelled; a tick already running is
// allowed to finish.
func (s *Scheduler) Run(ctx context.Context) {
	workCtx := context.WithoutCancel(ctx)
	logrus.WithFields(logrus.Fields{
		"interval": s.interval,
		"timeout":  s.timeout,
	}).Info("Scheduler started")

	s.execute(workCtx, "")

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			close(s.stopped)
			s.drain()
			logrus.Info("Scheduler stopped")
			return
		case <-t.C:
			s.execute(workCtx, "")
		case req := <-s.requests:
			req.done <- s.execute(workCtx, req.id)
		}
	}
}

// drain fails every request still queued after shutdown.
func (s *Scheduler) drain() {
	for {
		select {
		case req := <-s.requests:
			res := RefreshResult{RequestID: req.id, Status: StatusFailed, Message: ErrStopped.Error(), Error: ErrStopped.Error()}
			s.record(res)
			req.done <- res
		default:
			return
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, requestID string) RefreshResult {
	source := "scheduled"
	if requestID != "" {
		source = "on_demand"
	}
	entry := logrus.WithFields(logrus.Fields{"source": source, "request_id": requestID})

	report, err := s.ticker.ProcessTick(ctx)
	res := RefreshResult{RequestID: requestID}
	switch {
	case err == nil:
		res.Status = StatusCompleted
		res.Message = "Data refreshed"
		res.Report = report
	case store.IsTransient(err):
		entry.WithError(err).Warn("Tick failed on a transient error; retrying next tick")
		res.Status = StatusFailed
		res.Message = "Temporary failure; will retry on the next tick"
		res.Error = err.Error()
	default:
		entry.WithError(err).Error("Tick failed")
		res.Status = StatusFailed
		res.Message = "Processing failed"
		res.Error = err.Error()
	}

	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()
	if requestID != "" {
		s.record(res)
	}
	return res
}

// Refresh asks the worker for a tick and waits up to the configured timeout.
// If the tick is not done by then the caller gets StatusInProgress and the
// tick carries on; its outcome is later available from Result.
func (s *Scheduler) Refresh(ctx context.Context) (RefreshResult, error) {
	select {
	case <-s.stopped:
		return RefreshResult{}, ErrStopped
	default:
	}

	req := &request{id: uuid.NewString(), done: make(chan RefreshResult, 1)}
	pending := RefreshResult{RequestID: req.id, Status: StatusInProgress, Message: "Request is still processing"}

	s.record(pending)
	select {
	case <-s.stopped:
		s.forget(req.id)
		return RefreshResult{}, ErrStopped
	case s.requests <- req:
	default:
		s.forget(req.id)
		return RefreshResult{}, ErrQueueFull
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case res := <-req.done:
		return res, nil
	case <-s.stopped:
		return s.abandon(req)
	case <-timer.C:
		logrus.WithField("request_id", req.id).Info("Refresh still running after timeout; detaching caller")
		return pending, nil
	case <-ctx.Done():
		return pending, nil
	}
}

// abandon settles a request whose worker stopped. A request queued after
// the final drain is never served, so it is recorded as failed here.
func (s *Scheduler) abandon(req *request) (RefreshResult, error) {
	select {
	case res := <-req.done:
		return res, nil
	default:
	}
	s.record(RefreshResult{RequestID: req.id, Status: StatusFailed, Message: ErrStopped.Error(), Error: ErrStopped.Error()})
	return RefreshResult{}, ErrStopped
}

// Result returns the recorded outcome of a recent refresh request.
func (s *Scheduler) Result(id string) (RefreshResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[id]
	return res, ok
}

// Last returns the outcome of the most recent tick, if any ran.
func (s *Scheduler) Last() (RefreshResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return RefreshResult{}, false
	}
	return *s.last, true
}

func (s *Scheduler) record(res RefreshResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.results[res.RequestID]; !seen {
		s.order = append(s.order, res.RequestID)
		if len(s.order) > historySize {
			delete(s.results, s.order[0])
			s.order = s.order[1:]
		}
	}
	s.results[res.RequestID] = res
}

func (s *Scheduler) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
