package models

import "time"

// SensorReading is a raw value reported by a unit's sensor. Rows are
// append-only; only Processed ever changes after insert.
type SensorReading struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UnitID     int64     `gorm:"index:idx_reading_unit_sensor_time" json:"unit_id"`
	SensorID   int64     `gorm:"index:idx_reading_unit_sensor_time" json:"sensor_id"`
	SensorName string    `json:"sensor_name"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `gorm:"index:idx_reading_unit_sensor_time" json:"recorded_at"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	Processed  bool      `gorm:"index;default:false" json:"processed"`
	CreatedAt  time.Time `json:"created_at"`
}
