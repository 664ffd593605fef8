// internal/models/vehicle.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// VehicleStatus is the inventory lifecycle state of a unit. Transitions are
// validated by the lifecycle package before any write.
type VehicleStatus string

const (
	StatusInStockyard VehicleStatus = "in_stockyard"
	StatusAvailable   VehicleStatus = "available"
	StatusPending     VehicleStatus = "pending"
	StatusInTransit   VehicleStatus = "in_transit"
	StatusPreparing   VehicleStatus = "preparing"
	StatusReleased    VehicleStatus = "released" // terminal
)

// AllStatuses lists every inventory status, for validation and tests.
var AllStatuses = []VehicleStatus{
	StatusInStockyard,
	StatusAvailable,
	StatusPending,
	StatusInTransit,
	StatusPreparing,
	StatusReleased,
}

// Valid reports whether s is a known inventory status.
func (s VehicleStatus) Valid() bool {
	switch s {
	case StatusInStockyard, StatusAvailable, StatusPending, StatusInTransit, StatusPreparing, StatusReleased:
		return true
	}
	return false
}

type Vehicle struct {
	gorm.Model
	UnitID    string `json:"unit_id" gorm:"uniqueIndex;not null"` // conduction/VIN analog
	UnitName  string `json:"unit_name"`
	BodyColor string `json:"body_color"`
	Variation string `json:"variation"`

	Status         VehicleStatus `json:"status" gorm:"type:varchar(20);default:'in_stockyard'"`
	DriverID       *uint         `json:"driver_id" gorm:"index"`
	Driver         *Driver       `gorm:"foreignKey:DriverID" json:"driver,omitempty"`
	DriverAccepted bool          `json:"driver_accepted"`

	// Latest known fix, denormalized from the active allocation's snapshot.
	LastLatitude  *float64   `json:"last_latitude"`
	LastLongitude *float64   `json:"last_longitude"`
	LastFixAt     *time.Time `json:"last_fix_at"`
}
