package models

import "time"

// IdentityScan is a raw driver tag read. TransactionID is set when the scan
// opened a transaction.
type IdentityScan struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UnitID        int64     `gorm:"index" json:"unit_id"`
	IdentityCode  string    `gorm:"size:64" json:"identity_code"`
	RecordedAt    time.Time `gorm:"index" json:"recorded_at"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	Processed     bool      `gorm:"index;default:false" json:"processed"`
	TransactionID *string   `gorm:"size:36" json:"transaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
