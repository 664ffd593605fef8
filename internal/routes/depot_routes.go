package routes

import (
	"fleet_allocator/internal/controllers"
	"fleet_allocator/internal/middleware"

	"github.com/gin-gonic/gin"
)

func DepotRoutes(r *gin.Engine) {
	depot := r.Group("/depot")
	depot.Use(middleware.RequireAuth())
	{
		depot.GET("/", controllers.ListDepots)
		depot.GET("/:id", controllers.GetDepot)
	}

	admin := r.Group("/depot")
	admin.Use(middleware.RequireAuthWithRole("admin"))
	{
		admin.POST("/", controllers.CreateDepot)
	}
}
