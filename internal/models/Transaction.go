package models

import "time"

type TransactionStatus string

const (
	TransactionPending     TransactionStatus = "pending"
	TransactionPartial     TransactionStatus = "partial"
	TransactionCompleted   TransactionStatus = "completed"
	TransactionDiscrepancy TransactionStatus = "discrepancy"
	TransactionTimedOut    TransactionStatus = "timed_out"
)

// Terminal reports whether no further transition is allowed.
func (s TransactionStatus) Terminal() bool {
	return s != TransactionPending
}

// Transaction is one reconciled fuel hand-over between a bowser and a vehicle.
type Transaction struct {
	ID              string            `gorm:"primaryKey;size:36" json:"id"`
	DriverID        uint              `gorm:"index:idx_tx_triple" json:"driver_id"`
	VehicleID       uint              `gorm:"index:idx_tx_triple" json:"vehicle_id"`
	BowserID        uint              `gorm:"index:idx_tx_triple" json:"bowser_id"`
	OpenedAt        time.Time         `gorm:"index" json:"opened_at"`
	Status          TransactionStatus `gorm:"size:16;index" json:"status"`
	DispensedAmount *float64          `json:"dispensed_amount"`
	ReceivedAmount  *float64          `json:"received_amount"`
	Discrepancy     *float64          `json:"discrepancy"`
	DiscrepancyPct  *float64          `json:"discrepancy_pct"`
	ClosedAt        *time.Time        `json:"closed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`

	Driver  *Driver  `gorm:"foreignKey:DriverID" json:"driver,omitempty"`
	Vehicle *Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Bowser  *Bowser  `gorm:"foreignKey:BowserID" json:"bowser,omitempty"`
}
