package routes

import (
	"fleet_allocator/internal/controllers"
	"fleet_allocator/internal/middleware"

	"github.com/gin-gonic/gin"
)

func AllocationRoutes(r *gin.Engine) {
	allocation := r.Group("/")
	allocation.Use(middleware.RequireAuth())
	{
		allocation.GET("/getAllocation", controllers.GetAllocations)
		allocation.PUT("/updateServiceRequest/:id", controllers.UpdateServiceRequest)
	}

	dispatch := r.Group("/")
	dispatch.Use(middleware.RequireAuthWithRole("dispatcher", "admin"))
	{
		dispatch.POST("/createAllocation", controllers.CreateAllocation)
		dispatch.PUT("/markReadyForRelease/:id", controllers.MarkReadyForRelease)
	}
}
