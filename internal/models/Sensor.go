package models

import "time"

// SensorKind is resolved once, when a sensor is first registered. Only level
// and flow sensors produce fuel events; odometers feed vehicle status.
type SensorKind string

const (
	SensorKindLevel    SensorKind = "level"
	SensorKindFlow     SensorKind = "flow"
	SensorKindOdometer SensorKind = "odometer"
	SensorKindUnknown  SensorKind = "unknown"
)

type Sensor struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UnitID    int64      `gorm:"uniqueIndex:idx_sensor_unit_sensor" json:"unit_id"`
	SensorID  int64      `gorm:"uniqueIndex:idx_sensor_unit_sensor" json:"sensor_id"`
	Name      string     `json:"name"`
	Kind      SensorKind `gorm:"size:16" json:"kind"`
	CreatedAt time.Time  `json:"created_at"`
}
