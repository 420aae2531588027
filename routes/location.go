// routes/location.go
package routes

import (
	"touristsafety/controllers"

	"github.com/gin-gonic/gin"
)

// SetupLocationRoutes configures location tracking and zone lookup routes
func SetupLocationRoutes(router *gin.RouterGroup, locationController *controllers.LocationController, zoneController *controllers.ZoneController) {
	location := router.Group("/location")
	{
		location.POST("/ping", locationController.Ping)
		location.GET("/history", locationController.History)
		location.POST("/check-zone", locationController.CheckZone)
		location.GET("/safety-score", locationController.SafetyScore)
	}

	// Reads only; writes are registered with the admin routes
	zones := router.Group("/zones")
	{
		zones.GET("", zoneController.ListZones)
		zones.GET("/:id", zoneController.GetZone)
	}
}
