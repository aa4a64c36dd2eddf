package controllers

import (
	"context"
	"time"

	"fuel_tracker/internal/scheduler"
	"fuel_tracker/internal/store"
)

// Refresher is the part of the scheduler the API drives.
type Refresher interface {
	Refresh(ctx context.Context) (scheduler.RefreshResult, error)
	Result(id string) (scheduler.RefreshResult, bool)
	Last() (scheduler.RefreshResult, bool)
}

// Handler carries what the HTTP handlers need.
type Handler struct {
	store         *store.Store
	refresher     Refresher
	hub           *TransactionHub
	defaultRadius float64
	started       time.Time
}

func NewHandler(st *store.Store, refresher Refresher, hub *TransactionHub, defaultRadius float64) *Handler {
	return &Handler{
		store:         st,
		refresher:     refresher,
		hub:           hub,
		defaultRadius: defaultRadius,
		started:       time.Now().UTC(),
	}
}
