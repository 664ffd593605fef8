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
	"fleet_allocator/internal/models"
)

// depotResponse mirrors models.Depot with the boundary as GeoJSON.
type depotResponse struct {
	ID        uint      `json:"ID"`
	CreatedAt time.Time `json:"CreatedAt"`
	UpdatedAt time.Time `json:"UpdatedAt"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Boundary  string    `json:"boundary"`
}

func toDepotResponse(depot models.Depot) depotResponse {
	boundary, err := geo.BoundaryToGeoJSON(depot.Boundary)
	if err != nil {
		logrus.WithError(err).WithField("depot_id", depot.ID).Warn("Unreadable depot boundary in response.")
	}
	return depotResponse{
		ID:        depot.ID,
		CreatedAt: depot.CreatedAt,
		UpdatedAt: depot.UpdatedAt,
		Name:      depot.Name,
		Address:   depot.Address,
		Boundary:  boundary,
	}
}

// CreateDepot registers a dealership yard with a GeoJSON Polygon boundary.
func CreateDepot(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required"`
		Address  string `json:"address"`
		Boundary string `json:"boundary"` // GeoJSON Polygon
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid depot input: " + err.Error()})
		return
	}

	boundary, err := geo.ParseBoundary(input.Boundary)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid boundary: " + err.Error()})
		return
	}

	depot := models.Depot{
		Name:     input.Name,
		Address:  input.Address,
		Boundary: boundary,
	}
	if err := config.DB.Create(&depot).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create depot: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": toDepotResponse(depot)})
}

// ListDepots returns every configured yard.
func ListDepots(c *gin.Context) {
	var depots []models.Depot
	if err := config.DB.Find(&depots).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Error listing depots: " + err.Error()})
		return
	}

	out := make([]depotResponse, 0, len(depots))
	for _, d := range depots {
		out = append(out, toDepotResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}

// GetDepot returns one yard by id.
func GetDepot(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid Depot ID format."})
		return
	}

	var depot models.Depot
	if err := config.DB.First(&depot, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Depot not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": toDepotResponse(depot)})
}
