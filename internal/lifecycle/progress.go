package lifecycle

import (
	"errors"
	"fmt"

	"fleet_allocator/internal/models"
)

var (
	// ErrServicesIncomplete gates release readiness on full completion.
	ErrServicesIncomplete = errors.New("preparation services are not all complete")
)

// UnknownProcessError reports a process id outside the allocation's
// requested set.
type UnknownProcessError struct {
	ProcessID string
}

func (e *UnknownProcessError) Error() string {
	return fmt.Sprintf("process %q is not requested on this allocation", e.ProcessID)
}

// ApplyProcessUpdate marks processID complete or incomplete on a and
// recomputes status and progress from scratch. Recomputation rather than an
// incremental counter keeps repeated or reordered updates from drifting.
func ApplyProcessUpdate(a *models.Allocation, processID string, completed bool) error {
	if !requested(a, processID) {
		return &UnknownProcessError{ProcessID: processID}
	}

	done := make([]string, 0, len(a.RequestedProcesses))
	for _, p := range a.CompletedProcesses {
		if p != processID && requested(a, p) {
			done = append(done, p)
		}
	}
	if completed {
		done = append(done, processID)
	}
	a.CompletedProcesses = done

	progress := a.Progress()
	a.ProgressCompleted = progress.Completed
	a.ProgressTotal = progress.Total

	switch {
	case progress.IsComplete:
		a.Status = models.AllocationCompleted
	case progress.Completed > 0:
		a.Status = models.AllocationInProgress
	default:
		// Demoted all the way back down; the allocation returns to pending.
		a.Status = models.AllocationPending
	}

	// A completed allocation that loses a service is no longer releasable.
	if !progress.IsComplete {
		a.ReadyForRelease = false
	}
	return nil
}

// MarkReadyForRelease flags a releasable once every requested service is
// complete. Distinct from the release itself, which also moves the vehicle.
func MarkReadyForRelease(a *models.Allocation) error {
	if !a.Progress().IsComplete {
		return ErrServicesIncomplete
	}
	a.ReadyForRelease = true
	return nil
}

func requested(a *models.Allocation, processID string) bool {
	for _, p := range a.RequestedProcesses {
		if p == processID {
			return true
		}
	}
	return false
}
