package models

import (
	"gorm.io/gorm"
)

// Bowser is a dispensing point (tanker or fixed pump) carrying a flow meter.
// Each bowser owns exactly one geofence used for proximity tests.
type Bowser struct {
	gorm.Model
	Name       string    `json:"name"`
	UnitID     int64     `json:"unit_id" gorm:"uniqueIndex"`
	Capacity   float64   `json:"capacity"`
	GeofenceID uint      `json:"geofence_id" gorm:"uniqueIndex"`
	Geofence   *Geofence `gorm:"foreignKey:GeofenceID" json:"geofence,omitempty"`
	Active     bool      `json:"active" gorm:"default:true"`
}
