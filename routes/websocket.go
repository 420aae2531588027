// routes/websocket.go
package routes

import (
	"touristsafety/controllers"
	"touristsafety/middleware"

	"github.com/gin-gonic/gin"
)

// SetupWebSocketRoutes configures the realtime endpoint. Browsers cannot set
// headers on the upgrade request, so RequireAuth also reads ?token=.
func SetupWebSocketRoutes(router *gin.Engine, wsController *controllers.WebSocketController, authMiddleware *middleware.AuthMiddleware) {
	router.GET("/ws", authMiddleware.RequireAuth(), wsController.HandleWebSocket)
}
