package models

import "time"

// AuthenticationEvent records a scan that resolved to a known driver on a
// known vehicle.
type AuthenticationEvent struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DriverID     uint      `gorm:"index" json:"driver_id"`
	VehicleID    uint      `gorm:"index" json:"vehicle_id"`
	IdentityCode string    `gorm:"size:64" json:"identity_code"`
	ScanID       uint      `gorm:"uniqueIndex" json:"scan_id"`
	RecordedAt   time.Time `json:"recorded_at"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
