package fuel

import (
	"errors"
	"time"

	"fuel_tracker/internal/config"
)

// ErrInvalidEvent marks a raw event whose payload cannot be used. The event
// is skipped and marked processed; the tick goes on.
var ErrInvalidEvent = errors.New("invalid event")

// Settings are the thresholds and windows the engine decides with.
type Settings struct {
	ReceptionThreshold    float64       // minimum level rise counted as a reception
	MaxReadingGap         time.Duration // older previous readings are stale
	MatchWindow           time.Duration
	DedupWindow           time.Duration
	PendingTimeout        time.Duration
	DiscrepancyThreshold  float64 // percent
	DefaultGeofenceRadius float64 // meters
}

func DefaultSettings() Settings {
	return SettingsFrom(config.Default().Engine)
}

func SettingsFrom(e config.EngineConfig) Settings {
	return Settings{
		ReceptionThreshold:    e.ReceptionThreshold,
		MaxReadingGap:         e.MaxReadingGap,
		MatchWindow:           e.MatchWindow,
		DedupWindow:           e.DedupWindow,
		PendingTimeout:        e.PendingTimeout,
		DiscrepancyThreshold:  e.DiscrepancyThreshold,
		DefaultGeofenceRadius: e.DefaultGeofenceRadius,
	}
}
