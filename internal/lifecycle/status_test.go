package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet_allocator/internal/models"
)

// fullContext satisfies every precondition, so only the adjacency table and
// the release lockout can reject.
var fullContext = TransitionContext{
	HasDriver:        true,
	DriverAccepted:   true,
	AvailableAtDepot: true,
}

func TestValidateTransitionSelfIsNoOp(t *testing.T) {
	for _, s := range models.AllStatuses {
		assert.NoError(t, ValidateTransition(s, s, TransitionContext{}), "re-saving %s should succeed", s)
	}
}

func TestValidateTransitionAdjacency(t *testing.T) {
	allowed := map[models.VehicleStatus][]models.VehicleStatus{
		models.StatusInStockyard: {models.StatusAvailable},
		models.StatusAvailable:   {models.StatusPending, models.StatusPreparing},
		models.StatusPending:     {models.StatusInTransit, models.StatusAvailable},
		models.StatusInTransit:   {models.StatusAvailable},
		models.StatusPreparing:   {models.StatusAvailable},
		models.StatusReleased:    {},
	}
	isAllowed := func(from, to models.VehicleStatus) bool {
		for _, a := range allowed[from] {
			if a == to {
				return true
			}
		}
		return false
	}

	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			err := ValidateTransition(from, to, fullContext)
			switch {
			case from == to:
				assert.NoError(t, err, "%s -> %s", from, to)
			case isAllowed(from, to):
				assert.NoError(t, err, "%s -> %s", from, to)
			case to == models.StatusReleased:
				assert.ErrorIs(t, err, ErrReleaseRequiresDedicatedFlow, "%s -> %s", from, to)
			case to == models.StatusInTransit:
				assert.ErrorIs(t, err, ErrTransitNotAuthorized, "%s -> %s", from, to)
			default:
				var invalid *InvalidTransitionError
				require.ErrorAs(t, err, &invalid, "%s -> %s", from, to)
				assert.Equal(t, from, invalid.From)
				assert.Equal(t, to, invalid.To)
			}
		}
	}
}

func TestValidateTransitionPendingRequiresDriver(t *testing.T) {
	err := ValidateTransition(models.StatusAvailable, models.StatusPending, TransitionContext{HasDriver: false})
	assert.ErrorIs(t, err, ErrMissingDriverAssignment)

	err = ValidateTransition(models.StatusAvailable, models.StatusPending, TransitionContext{HasDriver: true})
	assert.NoError(t, err)
}

func TestValidateTransitionTransitPreconditions(t *testing.T) {
	// Right source state, driver has not accepted.
	err := ValidateTransition(models.StatusPending, models.StatusInTransit, TransitionContext{HasDriver: true})
	assert.ErrorIs(t, err, ErrTransitNotAuthorized)

	// Driver accepted but wrong source state.
	err = ValidateTransition(models.StatusAvailable, models.StatusInTransit, TransitionContext{HasDriver: true, DriverAccepted: true})
	assert.ErrorIs(t, err, ErrTransitNotAuthorized)

	err = ValidateTransition(models.StatusPending, models.StatusInTransit, TransitionContext{HasDriver: true, DriverAccepted: true})
	assert.NoError(t, err)
}

func TestValidateTransitionPreparingRequiresDepot(t *testing.T) {
	err := ValidateTransition(models.StatusAvailable, models.StatusPreparing, TransitionContext{})
	assert.ErrorIs(t, err, ErrNotAtDepot)

	err = ValidateTransition(models.StatusAvailable, models.StatusPreparing, TransitionContext{AvailableAtDepot: true})
	assert.NoError(t, err)

	// Wrong source state reads as an illegal pair, not a depot problem.
	var invalid *InvalidTransitionError
	err = ValidateTransition(models.StatusInTransit, models.StatusPreparing, fullContext)
	require.ErrorAs(t, err, &invalid)
}

func TestValidateTransitionReleaseLockout(t *testing.T) {
	// No path through the generic validator may reach released.
	for _, from := range models.AllStatuses {
		if from == models.StatusReleased {
			continue
		}
		err := ValidateTransition(from, models.StatusReleased, fullContext)
		assert.ErrorIs(t, err, ErrReleaseRequiresDedicatedFlow, "from %s", from)
	}
}

func TestValidateTransitionReleasedIsTerminal(t *testing.T) {
	for _, to := range models.AllStatuses {
		if to == models.StatusReleased {
			continue
		}
		err := ValidateTransition(models.StatusReleased, to, fullContext)
		assert.Error(t, err, "released -> %s must fail", to)
	}
}

func TestValidateRelease(t *testing.T) {
	assert.NoError(t, ValidateRelease(models.StatusPreparing, true))

	// Re-releasing a released unit is a no-op.
	assert.NoError(t, ValidateRelease(models.StatusReleased, true))

	assert.ErrorIs(t, ValidateRelease(models.StatusPreparing, false), ErrServicesIncomplete)

	var invalid *InvalidTransitionError
	err := ValidateRelease(models.StatusAvailable, true)
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, models.StatusReleased, invalid.To)
}
