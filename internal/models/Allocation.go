package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// AllocationStatus is derived from process completion, never set directly.
type AllocationStatus string

const (
	AllocationPending    AllocationStatus = "pending"
	AllocationInProgress AllocationStatus = "in_progress"
	AllocationCompleted  AllocationStatus = "completed"
)

// Preparation processes a unit can be booked for. "transport" and
// "documentation" cover the logistics/paperwork steps.
const (
	ProcessTinting       = "tinting"
	ProcessCarwash       = "carwash"
	ProcessCeramicCoat   = "ceramic_coating"
	ProcessAccessories   = "accessories"
	ProcessRustProof     = "rust_proof"
	ProcessTransport     = "transport"
	ProcessDocumentation = "documentation"
)

// KnownProcesses is the full enumeration; requested processes must be drawn
// from it.
var KnownProcesses = []string{
	ProcessTinting,
	ProcessCarwash,
	ProcessCeramicCoat,
	ProcessAccessories,
	ProcessRustProof,
	ProcessTransport,
	ProcessDocumentation,
}

// KnownProcess reports whether id is in the fixed process enumeration.
func KnownProcess(id string) bool {
	for _, p := range KnownProcesses {
		if p == id {
			return true
		}
	}
	return false
}

// Progress is the derived completion summary for an allocation. It is
// recomputed from scratch on every process update.
type Progress struct {
	Completed  int  `json:"completed"`
	Total      int  `json:"total"`
	IsComplete bool `json:"is_complete"`
}

// Allocation binds one Vehicle to one Driver (and optionally a sales Agent)
// for a set of requested preparation processes. The completed set is stored
// as a Postgres text[]; the processStatus map is its membership within
// RequestedProcesses.
type Allocation struct {
	gorm.Model
	Reference string `json:"reference" gorm:"uniqueIndex"`

	VehicleID uint    `json:"vehicle_id" gorm:"index"`
	Vehicle   Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	UnitID    string  `json:"unit_id" gorm:"index"`

	DriverID uint    `json:"driver_id" gorm:"index"`
	Driver   Driver  `gorm:"foreignKey:DriverID" json:"driver,omitempty"`
	AgentID  *uint   `json:"agent_id"`
	Agent    *Agent  `gorm:"foreignKey:AgentID" json:"agent,omitempty"`

	RequestedProcesses pq.StringArray `json:"requested_processes" gorm:"type:text[]"`
	CompletedProcesses pq.StringArray `json:"completed_processes" gorm:"type:text[]"`

	Status            AllocationStatus `json:"status" gorm:"type:varchar(20);default:'pending'"`
	ProgressCompleted int              `json:"-"`
	ProgressTotal     int              `json:"-"`

	ReadyForRelease bool       `json:"ready_for_release"`
	ReleasedAt      *time.Time `json:"released_at"`
	ReleasedBy      string     `json:"released_by"`

	// Current-location snapshot: the most-recent-by-timestamp fix. Updated
	// with a timestamp-guarded conditional write, never regresses.
	LastLatitude  *float64   `json:"last_latitude"`
	LastLongitude *float64   `json:"last_longitude"`
	LastAccuracy  *float64   `json:"last_accuracy"`
	LastSpeed     *float64   `json:"last_speed"`
	LastHeading   *float64   `json:"last_heading"`
	LastFixAt     *time.Time `json:"last_fix_at"`

	Samples []LocationSample `gorm:"foreignKey:AllocationID" json:"samples,omitempty"`
}

// ProcessStatus materializes the process-id -> completed mapping from the
// stored arrays.
func (a *Allocation) ProcessStatus() map[string]bool {
	m := make(map[string]bool, len(a.RequestedProcesses))
	for _, p := range a.RequestedProcesses {
		m[p] = false
	}
	for _, p := range a.CompletedProcesses {
		if _, ok := m[p]; ok {
			m[p] = true
		}
	}
	return m
}

// Progress returns the derived completion summary.
func (a *Allocation) Progress() Progress {
	done := 0
	for _, completed := range a.ProcessStatus() {
		if completed {
			done++
		}
	}
	total := len(a.RequestedProcesses)
	return Progress{
		Completed:  done,
		Total:      total,
		IsComplete: total > 0 && done == total,
	}
}
