// internal/models/driver.go
package models

import (
	"gorm.io/gorm"
)

// Driver is an operator identified at the pump by an identity tag (iButton/RFID).
type Driver struct {
	gorm.Model
	Name         string `json:"name"`
	Role         string `json:"role"`                                  // "driver", "attendant"
	IdentityCode string `json:"identity_code" gorm:"uniqueIndex;size:64"` // tag code read by the unit
}
