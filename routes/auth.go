// routes/auth.go
package routes

import (
	"touristsafety/controllers"
	"touristsafety/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes configures authentication-related routes
func SetupAuthRoutes(router *gin.RouterGroup, authController *controllers.AuthController, authMiddleware *middleware.AuthMiddleware) {
	auth := router.Group("/auth")

	// Public authentication endpoints
	auth.POST("/register", authController.Register)
	auth.POST("/login", authController.Login)

	// Token management
	auth.POST("/refresh", authController.RefreshToken)

	// Phone verification needs a session to attach the code to
	protected := auth.Group("/otp")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.POST("/request", authController.RequestOTP)
		protected.POST("/verify", authController.VerifyOTP)
	}
}
