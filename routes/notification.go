// routes/notification.go
package routes

import (
	"touristsafety/controllers"

	"github.com/gin-gonic/gin"
)

// SetupNotificationRoutes configures notification related routes
func SetupNotificationRoutes(router *gin.RouterGroup, notificationController *controllers.NotificationController) {
	notifications := router.Group("/notifications")

	notifications.GET("", notificationController.GetNotifications)
	notifications.PUT("/:id/read", notificationController.MarkAsRead)
	notifications.PUT("/read-all", notificationController.MarkAllAsRead)
}
