package models

import (
	"gorm.io/gorm"
)

// Geofence is a circular zone around a dispensing point.
// Radius is in meters; zero means "use the configured default".
type Geofence struct {
	gorm.Model

	Name      string  `json:"name" gorm:"uniqueIndex;size:128"`
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Radius    float64 `json:"radius"`
}
