package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fleet_allocator/internal/config"
	"fleet_allocator/internal/geo"
	"fleet_allocator/internal/lifecycle"
	"fleet_allocator/internal/middleware"
	"fleet_allocator/internal/models"
)

// AddStock registers a new unit on intake. Units always start in the
// stockyard.
func AddStock(c *gin.Context) {
	var input struct {
		UnitID    string `json:"unit_id" binding:"required"`
		UnitName  string `json:"unit_name" binding:"required"`
		BodyColor string `json:"body_color"`
		Variation string `json:"variation"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid vehicle input: " + err.Error()})
		return
	}

	vehicle := models.Vehicle{
		UnitID:    input.UnitID,
		UnitName:  input.UnitName,
		BodyColor: input.BodyColor,
		Variation: input.Variation,
		Status:    models.StatusInStockyard,
	}

	if err := config.DB.Create(&vehicle).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "unit_id already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create vehicle: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": vehicle})
}

// GetStock lists the inventory, optionally filtered by status.
func GetStock(c *gin.Context) {
	query := config.DB.Preload("Driver")
	if status := c.Query("status"); status != "" {
		if !models.VehicleStatus(status).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown status filter: " + status})
			return
		}
		query = query.Where("status = ?", status)
	}

	var vehicles []models.Vehicle
	if err := query.Find(&vehicles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Error listing vehicles: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": vehicles})
}

type updateStockInput struct {
	Status    *models.VehicleStatus `json:"status"`
	DriverID  *uint                 `json:"driver_id"`
	UnitName  *string               `json:"unit_name"`
	BodyColor *string               `json:"body_color"`
}

// UpdateStock applies a status and/or assignment change to a vehicle. Status
// changes go through the transition validator and are written with a
// status-guarded conditional update: if another request moved the vehicle
// first, the caller gets a retryable 409 instead of a corrupted machine.
func UpdateStock(c *gin.Context) {
	vehID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid Vehicle ID format."})
		return
	}

	var vehicle models.Vehicle
	if err := config.DB.First(&vehicle, uint(vehID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Vehicle not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error: " + err.Error()})
		}
		return
	}

	var input updateStockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid update: " + err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if input.UnitName != nil {
		updates["unit_name"] = *input.UnitName
	}
	if input.BodyColor != nil {
		updates["body_color"] = *input.BodyColor
	}

	hasDriver := vehicle.DriverID != nil
	driverAccepted := vehicle.DriverAccepted
	if input.DriverID != nil {
		if *input.DriverID == 0 {
			updates["driver_id"] = nil
			updates["driver_accepted"] = false
			hasDriver = false
			driverAccepted = false
		} else {
			var driver models.Driver
			if err := config.DB.First(&driver, *input.DriverID).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Driver not found"})
				return
			}
			updates["driver_id"] = driver.ID
			updates["driver_accepted"] = false
			hasDriver = true
			driverAccepted = false
		}
	}

	if input.Status != nil {
		next := *input.Status
		if !next.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown status: " + string(next)})
			return
		}
		tctx := lifecycle.TransitionContext{
			HasDriver:        hasDriver,
			DriverAccepted:   driverAccepted,
			AvailableAtDepot: vehicleAtDepot(&vehicle),
		}
		if err := lifecycle.ValidateTransition(vehicle.Status, next, tctx); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		updates["status"] = next
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": vehicle})
		return
	}

	// Conditional write: only lands if the status we validated against is
	// still the stored status.
	res := config.DB.Model(&models.Vehicle{}).
		Where("id = ? AND status = ?", vehicle.ID, vehicle.Status).
		Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update vehicle: " + res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "vehicle status changed concurrently, retry"})
		return
	}

	// A unit pulled back out of preparation is no longer releasable.
	if input.Status != nil && vehicle.Status == models.StatusPreparing && *input.Status != models.StatusPreparing {
		if err := config.DB.Model(&models.Allocation{}).
			Where("vehicle_id = ? AND released_at IS NULL", vehicle.ID).
			Update("ready_for_release", false).Error; err != nil {
			logrus.WithError(err).WithField("vehicle_id", vehicle.ID).Error("Failed to reset release readiness after status regression.")
		}
	}

	if err := config.DB.First(&vehicle, vehicle.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to reload vehicle: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": vehicle})
}

// AcceptAssignment lets the assigned driver confirm a pending allocation,
// which authorizes the move to in_transit.
func AcceptAssignment(c *gin.Context) {
	session := middleware.GetSession(c)

	vehID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid Vehicle ID format."})
		return
	}

	var driver models.Driver
	if err := config.DB.Where("user_id = ?", session.UserID).First(&driver).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Driver profile not found"})
		return
	}

	var vehicle models.Vehicle
	if err := config.DB.First(&vehicle, uint(vehID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Vehicle not found"})
		return
	}
	if vehicle.DriverID == nil || *vehicle.DriverID != driver.ID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Vehicle is not assigned to you"})
		return
	}
	if vehicle.Status != models.StatusPending {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Vehicle is not awaiting driver acceptance"})
		return
	}

	if err := config.DB.Model(&vehicle).Update("driver_accepted", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to accept assignment: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": vehicle})
}

// ReleaseVehicle is the dedicated release flow: the only path to the
// released terminal state. Requires a preparing unit whose active allocation
// has been marked ready.
func ReleaseVehicle(c *gin.Context) {
	session := middleware.GetSession(c)

	vehID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid Vehicle ID format."})
		return
	}

	var vehicle models.Vehicle
	if err := config.DB.First(&vehicle, uint(vehID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Vehicle not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error: " + err.Error()})
		}
		return
	}

	allocation, err := findActiveAllocation(config.DB, vehicle.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "No active allocation for this vehicle"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error: " + err.Error()})
		}
		return
	}

	if err := lifecycle.ValidateRelease(vehicle.Status, allocation.ReadyForRelease); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if vehicle.Status == models.StatusReleased {
		// Idempotent re-release.
		c.JSON(http.StatusOK, gin.H{"success": true, "data": vehicle})
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not start transaction"})
		return
	}

	res := tx.Model(&models.Vehicle{}).
		Where("id = ? AND status = ?", vehicle.ID, models.StatusPreparing).
		Update("status", models.StatusReleased)
	if res.Error != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to release vehicle: " + res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "vehicle status changed concurrently, retry"})
		return
	}

	now := time.Now().UTC()
	if err := tx.Model(allocation).Updates(map[string]interface{}{
		"released_at": now,
		"released_by": session.Name,
	}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to stamp release: " + err.Error()})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not commit transaction: " + err.Error()})
		return
	}

	logrus.WithFields(logrus.Fields{
		"vehicle_id":  vehicle.ID,
		"unit_id":     vehicle.UnitID,
		"released_by": session.Name,
	}).Info("Vehicle released to customer.")

	if err := config.DB.First(&vehicle, vehicle.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to reload vehicle: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": vehicle})
}

// vehicleAtDepot checks the vehicle's last known fix against every depot
// boundary. With no depots configured the check passes: available already
// implies physical presence at the yard for single-site installs.
func vehicleAtDepot(vehicle *models.Vehicle) bool {
	var depots []models.Depot
	if err := config.DB.Find(&depots).Error; err != nil {
		logrus.WithError(err).Error("Failed to load depots for containment check.")
		return false
	}
	if len(depots) == 0 {
		return true
	}
	if vehicle.LastLatitude == nil || vehicle.LastLongitude == nil {
		return false
	}
	for _, depot := range depots {
		inside, err := geo.WithinBoundary(depot.Boundary, *vehicle.LastLatitude, *vehicle.LastLongitude)
		if err != nil {
			logrus.WithError(err).WithField("depot_id", depot.ID).Warn("Unreadable depot boundary, skipping.")
			continue
		}
		if inside {
			return true
		}
	}
	return false
}
