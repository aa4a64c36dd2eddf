package models

import "time"

// ProximityEvent records a vehicle entering or leaving a bowser's geofence.
type ProximityEvent struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	VehicleID       uint              `gorm:"index" json:"vehicle_id"`
	BowserID        uint              `gorm:"index" json:"bowser_id"`
	Kind            GeofenceEventKind `gorm:"size:8" json:"kind"`
	GeofenceEventID uint              `gorm:"uniqueIndex" json:"geofence_event_id"`
	RecordedAt      time.Time         `json:"recorded_at"`
	Latitude        *float64          `json:"latitude,omitempty"`
	Longitude       *float64          `json:"longitude,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}
