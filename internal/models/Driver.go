// internal/models/driver.go
package models

import (
	"gorm.io/gorm"
)

// Driver is a delivery driver employed by the dealership. Vehicle assignment
// lives on the Vehicle/Allocation side; a driver can only hold one active
// assignment at a time.
type Driver struct {
	gorm.Model
	UserID        uint   `json:"user_id" gorm:"unique"` // Foreign key to User
	User          User   `gorm:"foreignKey:UserID" json:"-"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	LicenseNumber string `json:"license_number"`
	Active        bool   `json:"active" gorm:"default:true"`
}
