package models

import (
	"time"

	"gorm.io/gorm"
)

// LocationSample is one GPS breadcrumb in an allocation's history. Immutable
// once written; the composite unique index makes re-delivery of the same fix
// an idempotent no-op on insert.
type LocationSample struct {
	gorm.Model
	AllocationID uint    `json:"allocation_id" gorm:"index;uniqueIndex:idx_allocation_fix"`
	VehicleID    uint    `json:"vehicle_id" gorm:"index"`
	DriverID     uint    `json:"driver_id"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Accuracy     float64 `json:"accuracy"` // meters
	Altitude     float64 `json:"altitude"` // meters
	Speed        float64 `json:"speed"`    // m/s
	Heading      float64 `json:"heading"`  // degrees from north

	// Capture time reported by the position provider, not server receipt.
	Timestamp time.Time `json:"timestamp" gorm:"uniqueIndex:idx_allocation_fix"`
}
