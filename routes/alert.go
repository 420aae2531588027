// routes/alert.go
package routes

import (
	"touristsafety/controllers"
	"touristsafety/middleware"
	"touristsafety/models"

	"github.com/gin-gonic/gin"
)

// SetupAlertRoutes configures alert lifecycle and responder routes
func SetupAlertRoutes(
	router *gin.RouterGroup,
	alertController *controllers.AlertController,
	responderController *controllers.ResponderController,
	authMiddleware *middleware.AuthMiddleware,
	sosLimit gin.HandlerFunc,
) {
	staff := authMiddleware.RequireRole(models.RoleResponder, models.RoleAdmin)

	alerts := router.Group("/alerts")
	{
		alerts.POST("/sos", sosLimit, alertController.CreateSOS)
		alerts.POST("", alertController.CreateAlert)
		alerts.GET("", alertController.ListAlerts)
		alerts.GET("/summary", alertController.Summary)
		alerts.GET("/:id", alertController.GetAlert)
		alerts.PUT("/:id/status", alertController.UpdateStatus)
		alerts.POST("/:id/acknowledge", staff, alertController.Acknowledge)
	}

	responders := router.Group("/responders")
	responders.Use(staff)
	{
		responders.PUT("/:id/position", responderController.UpdatePosition)
	}
}
