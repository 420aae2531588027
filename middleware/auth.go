package middleware

import (
	"context"
	"strings"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type AuthMiddleware struct {
	jwtService *utils.JWTService
	users      UserLookup
}

func NewAuthMiddleware(jwtService *utils.JWTService, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		users:      users,
	}
}

// RequireAuth validates the access token and sets userID, userRole and
// user in the context. The role comes from the stored account so a
// demotion takes effect before the token expires.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			utils.UnauthorizedResponse(c, "Authentication token required")
			c.Abort()
			return
		}

		claims, err := am.jwtService.ValidateToken(token)
		if err != nil {
			logrus.WithError(err).Debug("Rejected token")
			utils.UnauthorizedResponse(c, "Invalid or expired authentication token")
			c.Abort()
			return
		}

		if claims.TokenType != utils.TokenTypeAccess {
			utils.UnauthorizedResponse(c, "Invalid token type")
			c.Abort()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := am.users.GetByID(ctx, claims.UserID)
		if err != nil {
			if utils.IsNotFound(err) || utils.IsValidation(err) {
				utils.UnauthorizedResponse(c, "User account not found")
			} else {
				logrus.WithError(err).WithField("userId", claims.UserID).Error("Failed to load user for auth")
				utils.InternalServerErrorResponse(c, "Failed to validate authentication")
			}
			c.Abort()
			return
		}

		if !user.IsActive {
			utils.UnauthorizedResponse(c, "User account is deactivated")
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID.Hex())
		c.Set("userEmail", user.Email)
		c.Set("userRole", user.Role)

		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func (am *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := utils.GetUserRole(c)
		if userRole == "" {
			utils.UnauthorizedResponse(c, "User role not found in context")
			c.Abort()
			return
		}

		for _, role := range roles {
			if userRole == role {
				c.Next()
				return
			}
		}

		utils.ForbiddenResponse(c, "Insufficient permissions")
		c.Abort()
	}
}

// extractToken reads a bearer header, falling back to the token query
// parameter that browsers use for websocket upgrades.
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if bearerToken != "" {
		parts := strings.SplitN(bearerToken, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	return c.Query("token")
}
