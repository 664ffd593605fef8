package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ArchivedAllocation is the terminal copy of a completed, released
// allocation, written by the background archiver. Snapshot fields are frozen
// at archive time; the breadcrumb history stays in location_samples keyed by
// the original allocation ID.
type ArchivedAllocation struct {
	gorm.Model
	AllocationID uint   `json:"allocation_id" gorm:"uniqueIndex"`
	Reference    string `json:"reference"`
	VehicleID    uint   `json:"vehicle_id"`
	UnitID       string `json:"unit_id"`
	DriverID     uint   `json:"driver_id"`
	AgentID      *uint  `json:"agent_id"`

	RequestedProcesses pq.StringArray `json:"requested_processes" gorm:"type:text[]"`
	CompletedProcesses pq.StringArray `json:"completed_processes" gorm:"type:text[]"`

	ReleasedAt *time.Time `json:"released_at"`
	ReleasedBy string     `json:"released_by"`
	ArchivedAt time.Time  `json:"archived_at"`
}
