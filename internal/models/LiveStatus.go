package models

import "time"

// VehicleStatus is the latest known state of a vehicle unit, one row per unit.
type VehicleStatus struct {
	UnitID     int64     `gorm:"primaryKey;autoIncrement:false" json:"unit_id"`
	FuelLevel  float64   `json:"fuel_level"`
	Odometer   float64   `json:"odometer"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// BowserStatus is the latest known state of a bowser unit. TotalDispensed is
// the flow meter's cumulative counter.
type BowserStatus struct {
	UnitID         int64     `gorm:"primaryKey;autoIncrement:false" json:"unit_id"`
	FuelLevel      float64   `json:"fuel_level"`
	TotalDispensed float64   `json:"total_dispensed"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}
