package models

import "time"

type FuelEventKind string

const (
	FuelReceived  FuelEventKind = "received"
	FuelDispensed FuelEventKind = "dispensed"
)

// FuelEvent is derived from two consecutive readings of one sensor.
// Amount is always a positive magnitude. TransactionID goes from nil to set,
// never back.
type FuelEvent struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	UnitID        int64         `gorm:"index:idx_fuel_event_lookup" json:"unit_id"`
	Kind          FuelEventKind `gorm:"size:16;index:idx_fuel_event_lookup" json:"kind"`
	Amount        float64       `json:"amount"`
	RecordedAt    time.Time     `gorm:"index:idx_fuel_event_lookup" json:"recorded_at"`
	Latitude      *float64      `json:"latitude,omitempty"`
	Longitude     *float64      `json:"longitude,omitempty"`
	ReadingID     uint          `gorm:"uniqueIndex" json:"reading_id"`
	TransactionID *string       `gorm:"size:36;index" json:"transaction_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
