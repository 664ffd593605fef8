package routes

import (
	"fleet_allocator/internal/controllers"
	"fleet_allocator/internal/middleware"

	"github.com/gin-gonic/gin"
)

func StaffRoutes(r *gin.Engine) {
	staff := r.Group("/staff")
	staff.Use(middleware.RequireAuthWithRole("dispatcher", "admin"))
	{
		staff.GET("/drivers", controllers.ListDrivers)
		staff.GET("/agents", controllers.ListAgents)
	}

	driver := r.Group("/driver")
	driver.Use(middleware.RequireAuthWithRole("driver"))
	{
		driver.GET("/assignment", controllers.GetMyAssignment)
	}
}
