package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fleet_allocator/internal/config"
	"fleet_allocator/internal/middleware"
	"fleet_allocator/internal/models"
)

// ListDrivers returns all drivers, for the dispatcher's assignment picker.
func ListDrivers(c *gin.Context) {
	var drivers []models.Driver
	if err := config.DB.Find(&drivers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Error listing drivers: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": drivers})
}

// ListAgents returns all sales agents.
func ListAgents(c *gin.Context) {
	var agents []models.Agent
	if err := config.DB.Find(&agents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Error listing agents: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": agents})
}

// GetMyAssignment returns the authenticated driver's assigned vehicle and
// active allocation, if any.
func GetMyAssignment(c *gin.Context) {
	session := middleware.GetSession(c)

	var driver models.Driver
	if err := config.DB.Where("user_id = ?", session.UserID).First(&driver).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Driver profile not found"})
		return
	}

	var vehicle models.Vehicle
	if err := config.DB.Where("driver_id = ?", driver.ID).First(&vehicle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "No vehicle assigned"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error: " + err.Error()})
		}
		return
	}

	allocation, err := findActiveAllocation(config.DB, vehicle.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"vehicle":    vehicle,
			"allocation": allocation,
		},
	})
}
