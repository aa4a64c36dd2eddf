// Package store is the persistence layer of the engine: the raw event
// partitions, the fleet registry, derived fuel events, live status and
// transactions. Every method runs on the handle the Store was built with, so
// a Store obtained inside WithTx shares one database transaction.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrAlreadyProcessed = errors.New("event already processed")
	ErrAlreadyConsumed  = errors.New("fuel event already consumed")
	ErrNotPending       = errors.New("transaction is not pending")
	ErrMissingGeofence  = errors.New("bowser has no geofence")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle (health checks, migrations).
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithTx runs fn inside a single database transaction. fn's error rolls the
// whole transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
