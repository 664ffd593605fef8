package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fleet_allocator/internal/config"
	"fleet_allocator/internal/lifecycle"
	"fleet_allocator/internal/models"
)

// findActiveAllocation resolves the one unreleased allocation for a vehicle.
func findActiveAllocation(db *gorm.DB, vehicleID uint) (*models.Allocation, error) {
	var allocation models.Allocation
	err := db.Where("vehicle_id = ? AND released_at IS NULL", vehicleID).
		Order("created_at desc").
		First(&allocation).Error
	if err != nil {
		return nil, err
	}
	return &allocation, nil
}

// GetAllocations lists allocations, newest first. ?active=true narrows to
// unreleased ones.
func GetAllocations(c *gin.Context) {
	query := config.DB.Preload("Driver").Preload("Agent").Preload("Vehicle").Order("created_at desc")
	if c.Query("active") == "true" {
		query = query.Where("released_at IS NULL")
	}

	var allocations []models.Allocation
	if err := query.Find(&allocations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Error listing allocations: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": allocations})
}

type createAllocationInput struct {
	UnitID             string   `json:"unit_id" binding:"required"`
	DriverID           uint     `json:"driver_id" binding:"required"`
	AgentID            *uint    `json:"agent_id"`
	RequestedProcesses []string `json:"requested_processes" binding:"required"`
}

// CreateAllocation binds an unassigned vehicle to an active driver for a set
// of preparation processes. The vehicle moves to pending through the
// validator in the same transaction.
func CreateAllocation(c *gin.Context) {
	var input createAllocationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid allocation input: " + err.Error()})
		return
	}

	if len(input.RequestedProcesses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "at least one preparation process is required"})
		return
	}
	for _, p := range input.RequestedProcesses {
		if !models.KnownProcess(p) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown process: " + p})
			return
		}
	}

	var driver models.Driver
	if err := config.DB.First(&driver, input.DriverID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Driver not found"})
		return
	}
	if !driver.Active {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "driver is not active"})
		return
	}

	if input.AgentID != nil {
		var agent models.Agent
		if err := config.DB.First(&agent, *input.AgentID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Agent not found"})
			return
		}
	}

	var vehicle models.Vehicle
	if err := config.DB.Where("unit_id = ?", input.UnitID).First(&vehicle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Vehicle not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error: " + err.Error()})
		}
		return
	}
	if vehicle.DriverID != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "vehicle already has an assigned driver"})
		return
	}

	tctx := lifecycle.TransitionContext{HasDriver: true}
	if err := lifecycle.ValidateTransition(vehicle.Status, models.StatusPending, tctx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not start transaction"})
		return
	}

	res := tx.Model(&models.Vehicle{}).
		Where("id = ? AND status = ?", vehicle.ID, vehicle.Status).
		Updates(map[string]interface{}{
			"status":          models.StatusPending,
			"driver_id":       driver.ID,
			"driver_accepted": false,
		})
	if res.Error != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to assign vehicle: " + res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "vehicle status changed concurrently, retry"})
		return
	}

	allocation := models.Allocation{
		Reference:          uuid.NewString(),
		VehicleID:          vehicle.ID,
		UnitID:             vehicle.UnitID,
		DriverID:           driver.ID,
		AgentID:            input.AgentID,
		RequestedProcesses: input.RequestedProcesses,
		CompletedProcesses: []string{},
		Status:             models.AllocationPending,
		ProgressTotal:      len(input.RequestedProcesses),
	}
	if err := tx.Create(&allocation).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create allocation: " + err.Error()})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not commit transaction: " + err.Error()})
		return
	}

	logrus.WithFields(logrus.Fields{
		"reference": allocation.Reference,
		"unit_id":   allocation.UnitID,
		"driver_id": allocation.DriverID,
	}).Info("Allocation created.")

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": allocation})
}

type serviceRequestInput struct {
	ProcessID string `json:"process_id" binding:"required"`
	Completed *bool  `json:"completed" binding:"required"`
}

// UpdateServiceRequest toggles one preparation process and persists the
// recomputed progress and status.
func UpdateServiceRequest(c *gin.Context) {
	allocID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid Allocation ID format."})
		return
	}

	var input serviceRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid service request input: " + err.Error()})
		return
	}

	var allocation models.Allocation
	if err := config.DB.First(&allocation, uint(allocID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Allocation not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error: " + err.Error()})
		}
		return
	}
	if allocation.ReleasedAt != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "allocation already released"})
		return
	}

	if err := lifecycle.ApplyProcessUpdate(&allocation, input.ProcessID, *input.Completed); err != nil {
		var unknown *lifecycle.UnknownProcessError
		if errors.As(err, &unknown) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := config.DB.Model(&allocation).Updates(map[string]interface{}{
		"completed_processes": allocation.CompletedProcesses,
		"status":              allocation.Status,
		"progress_completed":  allocation.ProgressCompleted,
		"progress_total":      allocation.ProgressTotal,
		"ready_for_release":   allocation.ReadyForRelease,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update allocation: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"data":     allocation,
		"progress": allocation.Progress(),
	})
}

// MarkReadyForRelease flags an allocation releasable once every requested
// service is complete.
func MarkReadyForRelease(c *gin.Context) {
	allocID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid Allocation ID format."})
		return
	}

	var allocation models.Allocation
	if err := config.DB.First(&allocation, uint(allocID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Allocation not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error: " + err.Error()})
		}
		return
	}

	if allocation.ReleasedAt != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "allocation already released"})
		return
	}

	if err := lifecycle.MarkReadyForRelease(&allocation); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := config.DB.Model(&allocation).Update("ready_for_release", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update allocation: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
