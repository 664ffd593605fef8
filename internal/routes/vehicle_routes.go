package routes

import (
	"fleet_allocator/internal/controllers"
	"fleet_allocator/internal/middleware"

	"github.com/gin-gonic/gin"
)

func VehicleRoutes(r *gin.Engine) {
	stock := r.Group("/")
	stock.Use(middleware.RequireAuth())
	{
		stock.GET("/getStock", controllers.GetStock)
		stock.PUT("/updateStock/:id", controllers.UpdateStock)
	}

	admin := r.Group("/")
	admin.Use(middleware.RequireAuthWithRole("dispatcher", "admin"))
	{
		admin.POST("/addStock", controllers.AddStock)
		admin.PUT("/releaseVehicle/:id", controllers.ReleaseVehicle)
	}

	driver := r.Group("/")
	driver.Use(middleware.RequireAuthWithRole("driver"))
	{
		driver.PUT("/acceptAssignment/:id", controllers.AcceptAssignment)
	}
}
