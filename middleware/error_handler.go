package middleware

import (
	"net/http"
	"runtime/debug"

	"touristsafety/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	environment string
	logger      *logrus.Logger
}

func NewErrorHandler(environment string, logger *logrus.Logger) *ErrorHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ErrorHandler{
		environment: environment,
		logger:      logger,
	}
}

// Handle recovers panics into a 500 envelope and renders any error a
// handler attached with c.Error when it has not written a response.
func (eh *ErrorHandler) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				eh.handlePanic(c, err)
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			utils.HandleServiceError(c, c.Errors.Last().Err)
		}
	}
}

func (eh *ErrorHandler) handlePanic(c *gin.Context, err interface{}) {
	stack := string(debug.Stack())
	eh.logger.WithFields(logrus.Fields{
		"panic":     err,
		"stack":     stack,
		"requestId": c.GetString(RequestIDKey),
		"path":      c.Request.URL.Path,
		"method":    c.Request.Method,
		"userId":    c.GetString("userID"),
	}).Error("Panic recovered")

	var details interface{}
	if eh.environment == "development" {
		details = map[string]interface{}{"panic": err, "stack": stack}
	}

	if !c.Writer.Written() {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error", details)
	}
	c.Abort()
}

// NoRoute renders unknown paths in the standard envelope.
func NoRoute(c *gin.Context) {
	utils.ErrorResponse(c, http.StatusNotFound, "Route not found", map[string]string{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	})
}
