package models

import "time"

type GeofenceEventKind string

const (
	GeofenceEnter GeofenceEventKind = "enter"
	GeofenceExit  GeofenceEventKind = "exit"
)

// GeofenceEvent is a raw zone enter/exit notification from a unit.
type GeofenceEvent struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	UnitID     int64             `gorm:"index" json:"unit_id"`
	GeofenceID uint              `json:"geofence_id"`
	Kind       GeofenceEventKind `gorm:"size:8" json:"kind"`
	RecordedAt time.Time         `gorm:"index" json:"recorded_at"`
	Latitude   *float64          `json:"latitude,omitempty"`
	Longitude  *float64          `json:"longitude,omitempty"`
	Processed  bool              `gorm:"index;default:false" json:"processed"`
	CreatedAt  time.Time         `json:"created_at"`
}
