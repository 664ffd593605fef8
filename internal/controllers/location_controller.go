package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fleet_allocator/internal/cache"
	"fleet_allocator/internal/config"
	"fleet_allocator/internal/geo"
	"fleet_allocator/internal/models"
)

// fleetCache fronts the map snapshot query; nil (unconfigured) is a no-op.
var fleetCache *cache.FleetCache

// SetFleetCache installs the optional snapshot cache. Called once from main.
func SetFleetCache(c *cache.FleetCache) {
	fleetCache = c
}

// locationPayload is the ingest body pushed by the tracking client.
// Timestamp is the provider's capture time, handled by the custom
// UnmarshalJSON below.
type locationPayload struct {
	UnitID    string    `json:"unit_id"`
	DriverID  uint      `json:"driver_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Altitude  float64   `json:"altitude"`
	Speed     float64   `json:"speed"`
	Heading   float64   `json:"heading"`
	Timestamp time.Time `json:"timestamp"`
}

// UnmarshalJSON handles the timestamp formats the mobile clients send:
// RFC3339 with or without a timezone suffix (no suffix is taken as UTC).
func (lp *locationPayload) UnmarshalJSON(data []byte) error {
	type alias locationPayload
	aux := &struct {
		Timestamp string `json:"timestamp"`
		*alias
	}{alias: (*alias)(lp)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	ts := aux.Timestamp
	if ts == "" {
		return errors.New("missing timestamp")
	}
	if !(strings.HasSuffix(ts, "Z") || (len(ts) > 6 && strings.ContainsAny(ts[len(ts)-6:], "+-"))) {
		ts += "Z"
	}

	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", aux.Timestamp, err)
	}
	lp.Timestamp = t
	return nil
}

// UpdateVehicleLocation ingests one sample keyed by unit id. Appends to the
// allocation's breadcrumb history and advances the current-location snapshot
// if, and only if, the sample is the newest seen.
func UpdateVehicleLocation(c *gin.Context) {
	var payload locationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid location payload: " + err.Error()})
		return
	}
	if payload.UnitID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unit_id is required"})
		return
	}

	var vehicle models.Vehicle
	if err := config.DB.Where("unit_id = ?", payload.UnitID).First(&vehicle).Error; err != nil {
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

	ingestSample(c, allocation, payload)
}

// UpdateAllocationLocation is the same ingest keyed by allocation id.
func UpdateAllocationLocation(c *gin.Context) {
	allocID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid Allocation ID format."})
		return
	}

	var payload locationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid location payload: " + err.Error()})
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
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "No active allocation for this vehicle"})
		return
	}

	ingestSample(c, &allocation, payload)
}

// ingestSample validates, appends, and advances the snapshot. History insert
// and snapshot update are independent: a late out-of-order sample still
// lands in the history even though the snapshot stays put.
func ingestSample(c *gin.Context, allocation *models.Allocation, payload locationPayload) {
	if err := geo.ValidateCoordinate(payload.Latitude, payload.Longitude); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid coordinate: latitude must be in [-90,90], longitude in [-180,180]"})
		return
	}

	sample := models.LocationSample{
		AllocationID: allocation.ID,
		VehicleID:    allocation.VehicleID,
		DriverID:     payload.DriverID,
		Latitude:     payload.Latitude,
		Longitude:    payload.Longitude,
		Accuracy:     payload.Accuracy,
		Altitude:     payload.Altitude,
		Speed:        payload.Speed,
		Heading:      payload.Heading,
		Timestamp:    payload.Timestamp,
	}

	if err := config.DB.Create(&sample).Error; err != nil {
		// Re-delivery of a fix the history already holds is a no-op.
		if isUniqueViolation(err) {
			logrus.WithFields(logrus.Fields{
				"allocation_id": allocation.ID,
				"timestamp":     payload.Timestamp,
			}).Debug("Duplicate location sample ignored.")
			c.JSON(http.StatusOK, gin.H{"success": true, "duplicate": true})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to record location: " + err.Error()})
		return
	}

	// Timestamp-guarded snapshot advance: last writer wins by capture time,
	// so out-of-order delivery never regresses the map marker.
	snapshot := map[string]interface{}{
		"last_latitude":  payload.Latitude,
		"last_longitude": payload.Longitude,
		"last_accuracy":  payload.Accuracy,
		"last_speed":     payload.Speed,
		"last_heading":   payload.Heading,
		"last_fix_at":    payload.Timestamp,
	}
	res := config.DB.Model(&models.Allocation{}).
		Where("id = ? AND (last_fix_at IS NULL OR last_fix_at <= ?)", allocation.ID, payload.Timestamp).
		Updates(snapshot)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update location snapshot: " + res.Error.Error()})
		return
	}

	if res.RowsAffected > 0 {
		// Mirror the latest fix onto the vehicle row for inventory views.
		if err := config.DB.Model(&models.Vehicle{}).
			Where("id = ? AND (last_fix_at IS NULL OR last_fix_at <= ?)", allocation.VehicleID, payload.Timestamp).
			Updates(map[string]interface{}{
				"last_latitude":  payload.Latitude,
				"last_longitude": payload.Longitude,
				"last_fix_at":    payload.Timestamp,
			}).Error; err != nil {
			logrus.WithError(err).WithField("vehicle_id", allocation.VehicleID).Error("Failed to mirror fix onto vehicle.")
		}
		fleetCache.Invalidate(c.Request.Context())
	} else {
		logrus.WithFields(logrus.Fields{
			"allocation_id": allocation.ID,
			"timestamp":     payload.Timestamp,
		}).Debug("Out-of-order sample recorded in history, snapshot unchanged.")
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// fleetMarker is one plottable vehicle on the dispatcher map.
type fleetMarker struct {
	AllocationID uint                 `json:"allocation_id"`
	Reference    string               `json:"reference"`
	UnitID       string               `json:"unit_id"`
	UnitName     string               `json:"unit_name"`
	DriverID     uint                 `json:"driver_id"`
	Status       models.VehicleStatus `json:"status"`
	Latitude     float64              `json:"latitude"`
	Longitude    float64              `json:"longitude"`
	Speed        *float64             `json:"speed,omitempty"`
	Heading      *float64             `json:"heading,omitempty"`
	FixAt        time.Time            `json:"fix_at"`
}

// GetFleetLocations returns the current snapshot for every active allocation
// that has a valid fix. Read-only and idempotent; map views poll it.
func GetFleetLocations(c *gin.Context) {
	if payload, ok := fleetCache.Get(c.Request.Context()); ok {
		c.Data(http.StatusOK, "application/json", payload)
		return
	}

	var allocations []models.Allocation
	if err := config.DB.Preload("Vehicle").
		Where("released_at IS NULL AND last_fix_at IS NOT NULL").
		Find(&allocations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Error loading fleet snapshot: " + err.Error()})
		return
	}

	markers := make([]fleetMarker, 0, len(allocations))
	for _, a := range allocations {
		if a.LastLatitude == nil || a.LastLongitude == nil || a.LastFixAt == nil {
			continue
		}
		if geo.ValidateCoordinate(*a.LastLatitude, *a.LastLongitude) != nil {
			continue
		}
		markers = append(markers, fleetMarker{
			AllocationID: a.ID,
			Reference:    a.Reference,
			UnitID:       a.UnitID,
			UnitName:     a.Vehicle.UnitName,
			DriverID:     a.DriverID,
			Status:       a.Vehicle.Status,
			Latitude:     *a.LastLatitude,
			Longitude:    *a.LastLongitude,
			Speed:        a.LastSpeed,
			Heading:      a.LastHeading,
			FixAt:        *a.LastFixAt,
		})
	}

	body, err := json.Marshal(gin.H{"success": true, "data": markers})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to encode fleet snapshot"})
		return
	}
	fleetCache.Set(c.Request.Context(), body)
	c.Data(http.StatusOK, "application/json", body)
}
