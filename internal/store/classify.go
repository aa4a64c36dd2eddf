package store

import (
	"strings"

	"fuel_tracker/internal/models"
)

var sensorNameFolder = strings.NewReplacer(" ", "_", "-", "_")

// ClassifySensor resolves a sensor's kind from its vendor-supplied name.
// "Fuel Level Sensor", "fuel-level" and "FUEL_LEVEL_1" are all level sensors.
func ClassifySensor(name string) models.SensorKind {
	n := sensorNameFolder.Replace(strings.ToLower(strings.TrimSpace(name)))
	switch {
	case strings.Contains(n, "fuel_level"):
		return models.SensorKindLevel
	case strings.Contains(n, "fuel_flow"), strings.Contains(n, "flow_meter"):
		return models.SensorKindFlow
	case strings.Contains(n, "odometer"), strings.Contains(n, "mileage"):
		return models.SensorKindOdometer
	default:
		return models.SensorKindUnknown
	}
}
