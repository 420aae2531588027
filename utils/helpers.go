package utils

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// GetUserID retrieves the user ID that RequireAuth stored in the context.
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get("userID"); exists {
		if idStr, ok := userID.(string); ok {
			return idStr
		}
	}
	return ""
}

// GetUserRole retrieves the role claim that RequireAuth stored in the context.
func GetUserRole(c *gin.Context) string {
	if role, exists := c.Get("userRole"); exists {
		if s, ok := role.(string); ok {
			return s
		}
	}
	return ""
}

// UUID Generation
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateDocumentNumber returns a human-readable digital ID number.
func GenerateDocumentNumber() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "TID-" + strings.ToUpper(id[:12])
}

// ParseObjectID converts hex into an ObjectID, failing with a validation
// error naming the field.
func ParseObjectID(hex, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, NewValidationError("Invalid " + field)
	}
	return id, nil
}

func ClampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// GetPagination reads page/limit query params with sane bounds.
func GetPagination(c *gin.Context, defaultLimit, maxLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if page < 1 {
		page = 1
	}
	return page, ClampInt(limit, 1, maxLimit)
}

// String Utilities
func MaskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	username := parts[0]
	if len(username) <= 2 {
		return email
	}

	return username[:1] + strings.Repeat("*", len(username)-2) + username[len(username)-1:] + "@" + parts[1]
}

func MaskPhoneNumber(phone string) string {
	cleaned := phoneDigitsRegex.ReplaceAllString(phone, "")
	if len(cleaned) < 4 {
		return phone
	}

	return "+" + strings.Repeat("*", len(cleaned)-4) + cleaned[len(cleaned)-4:]
}

// Password hashing

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
