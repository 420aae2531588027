// routes/user.go
package routes

import (
	"touristsafety/controllers"
	"touristsafety/middleware"
	"touristsafety/models"

	"github.com/gin-gonic/gin"
)

// SetupUserRoutes configures profile, consent and digital ID routes
func SetupUserRoutes(
	router *gin.RouterGroup,
	userController *controllers.UserController,
	consentController *controllers.ConsentController,
	digitalIDController *controllers.DigitalIDController,
	authMiddleware *middleware.AuthMiddleware,
) {
	user := router.Group("/user")
	{
		user.GET("/profile", userController.GetProfile)
		user.PUT("/profile", userController.UpdateProfile)
		user.PUT("/emergency-contacts", userController.UpdateEmergencyContacts)
		user.POST("/itinerary", userController.AddItinerary)
		user.DELETE("/itinerary/:id", userController.RemoveItinerary)
	}

	consent := router.Group("/consent")
	{
		consent.POST("", consentController.RecordConsent)
		consent.GET("", consentController.GetStatus)
		consent.GET("/history", consentController.GetHistory)
		consent.DELETE("/:type", consentController.RevokeConsent)
	}

	digitalID := router.Group("/digital-id")
	{
		digitalID.POST("", digitalIDController.Issue)
		digitalID.GET("/qr", digitalIDController.GetQR)
		digitalID.DELETE("", digitalIDController.Revoke)

		// Scanning is done by officials at checkpoints
		digitalID.POST("/verify",
			authMiddleware.RequireRole(models.RoleResponder, models.RoleAdmin),
			digitalIDController.Verify,
		)
	}
}
