// Package lifecycle holds the pure rules for vehicle inventory status and
// allocation progress. Nothing here touches the database; controllers
// validate first, then persist with a conditional write.
package lifecycle

import (
	"errors"
	"fmt"

	"fleet_allocator/internal/models"
)

// TransitionContext carries the facts the transition rules depend on.
// Callers assemble it from the vehicle row and the depot check; the validator
// itself never reaches into storage.
type TransitionContext struct {
	HasDriver        bool
	DriverAccepted   bool
	AvailableAtDepot bool
}

var (
	// ErrReleaseRequiresDedicatedFlow rejects released as a target of the
	// generic status-update path. Release goes through ReleaseVehicle only.
	ErrReleaseRequiresDedicatedFlow = errors.New("release requires the dedicated release flow")

	// ErrMissingDriverAssignment rejects pending without an assigned driver.
	ErrMissingDriverAssignment = errors.New("cannot mark pending without an assigned driver")

	// ErrTransitNotAuthorized rejects in_transit unless the unit is pending
	// and the driver has accepted the assignment.
	ErrTransitNotAuthorized = errors.New("transit requires a pending unit and driver acceptance")

	// ErrNotAtDepot rejects preparing unless the unit is available at the depot.
	ErrNotAtDepot = errors.New("preparation requires the unit to be available at the depot")
)

// InvalidTransitionError reports a (from, to) pair outside the adjacency table.
type InvalidTransitionError struct {
	From models.VehicleStatus
	To   models.VehicleStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

// adjacency is the static transition table. released is terminal.
var adjacency = map[models.VehicleStatus][]models.VehicleStatus{
	models.StatusInStockyard: {models.StatusAvailable},
	models.StatusAvailable:   {models.StatusPending, models.StatusPreparing},
	models.StatusPending:     {models.StatusInTransit, models.StatusAvailable},
	models.StatusInTransit:   {models.StatusAvailable},
	models.StatusPreparing:   {models.StatusAvailable, models.StatusReleased},
	models.StatusReleased:    {},
}

// ValidateTransition checks whether a vehicle may move from current to next
// under ctx. Rules are checked in order; the first failing rule wins.
// current == next always succeeds (idempotent re-save).
func ValidateTransition(current, next models.VehicleStatus, ctx TransitionContext) error {
	if current == next {
		return nil
	}
	if next == models.StatusReleased {
		return ErrReleaseRequiresDedicatedFlow
	}
	if next == models.StatusPending && !ctx.HasDriver {
		return ErrMissingDriverAssignment
	}
	if next == models.StatusInTransit && (current != models.StatusPending || !ctx.DriverAccepted) {
		return ErrTransitNotAuthorized
	}
	// Wrong source state falls through to the adjacency check below so the
	// caller sees the illegal pair rather than a depot complaint.
	if next == models.StatusPreparing && current == models.StatusAvailable && !ctx.AvailableAtDepot {
		return ErrNotAtDepot
	}
	for _, allowed := range adjacency[current] {
		if allowed == next {
			return nil
		}
	}
	return &InvalidTransitionError{From: current, To: next}
}

// ValidateRelease validates the dedicated release path: only a unit in
// preparation can be released, and only when its allocation is flagged
// ready. Releasing an already-released unit is a no-op.
func ValidateRelease(current models.VehicleStatus, readyForRelease bool) error {
	if current == models.StatusReleased {
		return nil
	}
	if current != models.StatusPreparing {
		return &InvalidTransitionError{From: current, To: models.StatusReleased}
	}
	if !readyForRelease {
		return ErrServicesIncomplete
	}
	return nil
}
