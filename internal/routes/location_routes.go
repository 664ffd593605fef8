package routes

import (
	"fleet_allocator/internal/controllers"
	"fleet_allocator/internal/middleware"

	"github.com/gin-gonic/gin"
)

func LocationRoutes(r *gin.Engine) {
	ingest := r.Group("/")
	ingest.Use(middleware.RequireAuthWithRole("driver", "dispatcher", "admin"))
	{
		ingest.POST("/vehicles/location/update", controllers.UpdateVehicleLocation)
		ingest.PUT("/updateAllocationLocation/:id", controllers.UpdateAllocationLocation)
	}

	read := r.Group("/")
	read.Use(middleware.RequireAuth())
	{
		read.GET("/getFleetLocations", controllers.GetFleetLocations)
	}
}
