// Package app wires the engine, scheduler, publishers and HTTP API together.
package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fuel_tracker/internal/cache"
	"fuel_tracker/internal/config"
	"fuel_tracker/internal/controllers"
	"fuel_tracker/internal/fuel"
	"fuel_tracker/internal/logger"
	"fuel_tracker/internal/routes"
	"fuel_tracker/internal/scheduler"
	"fuel_tracker/internal/store"
)

type App struct {
	db        *gorm.DB
	processor *fuel.Processor
	scheduler *scheduler.Scheduler
	hub       *controllers.TransactionHub
	cache     *cache.LiveCache
	server    *http.Server
}

// New opens the database and builds every component. accessLog receives
// the HTTP request log.
func New(ctx context.Context, cfg *config.Config, accessLog io.Writer) (*App, error) {
	db, err := config.InitDB(cfg.DB, logger.GormLogger())
	if err != nil {
		return nil, err
	}
	st := store.New(db)

	a := &App{db: db, hub: controllers.NewTransactionHub()}
	publishers := []fuel.Publisher{a.hub}

	if cfg.Redis.Addr != "" {
		lc, err := cache.NewLiveCache(ctx, cfg.Redis)
		if err != nil {
			// The cache is optional; the engine runs without it.
			logrus.WithError(err).WithField("addr", cfg.Redis.Addr).Warn("Redis unavailable; live cache disabled")
		} else {
			a.cache = lc
			publishers = append(publishers, lc)
		}
	}

	settings := fuel.SettingsFrom(cfg.Engine)
	a.processor = fuel.NewProcessor(st, settings, fuel.SystemClock{}, publishers...)
	a.scheduler = scheduler.New(a.processor, cfg.Engine.TickInterval, cfg.Engine.RefreshTimeout, cfg.Engine.RefreshQueueSize)

	h := controllers.NewHandler(st, a.scheduler, a.hub, cfg.Engine.DefaultGeofenceRadius)
	a.server = &http.Server{
		Addr:        cfg.HTTP.Addr,
		Handler:     routes.SetupRouter(h, accessLog),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	// Refresh requests may wait for a whole tick.
	a.server.WriteTimeout = cfg.Engine.RefreshTimeout + 15*time.Second
	return a, nil
}

// Run serves HTTP and runs the scheduler until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.scheduler.Run(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", a.server.Addr).Info("Starting HTTP server")
		errCh <- a.server.ListenAndServe()
	}()

	var err error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = a.server.Shutdown(shutdownCtx)
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	// Let an in-flight tick commit before returning.
	cancel()
	wg.Wait()
	return err
}

// Close releases resources.
func (a *App) Close() {
	a.hub.Close()
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}
}
