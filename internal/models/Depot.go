package models

import (
	"gorm.io/gorm"
)

// Depot is a dealership yard. Boundary holds the yard polygon as WKB
// (GeoJSON at the API edge); vehicles must be inside it to move from
// available to preparing.
type Depot struct {
	gorm.Model
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`

	// Polygon stored as WKB (SRID 4326)
	Boundary []byte `gorm:"type:bytea" json:"-"`
}
