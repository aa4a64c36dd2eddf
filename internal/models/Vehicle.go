// internal/models/vehicle.go
package models

import (
	"gorm.io/gorm"
)

type Vehicle struct {
	gorm.Model
	Name         string  `json:"name"`
	Registration string  `json:"registration"`
	UnitID       int64   `json:"unit_id" gorm:"uniqueIndex"` // tracking unit fitted to the vehicle
	FuelCapacity float64 `json:"fuel_capacity"`
	Active       bool    `json:"active" gorm:"default:true"`
}
