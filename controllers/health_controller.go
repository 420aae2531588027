package controllers

import (
	"context"
	"net/http"
	"time"

	"touristsafety/utils"

	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency. A nil check marks it disabled.
type HealthCheck func(ctx context.Context) error

type HealthController struct {
	checks    map[string]HealthCheck
	version   string
	startedAt time.Time
}

func NewHealthController(version string, checks map[string]HealthCheck) *HealthController {
	return &HealthController{
		checks:    checks,
		version:   version,
		startedAt: time.Now(),
	}
}

// HealthCheck reports 200 when every enabled dependency answers, 503
// otherwise.
// @Router /health [get]
func (hc *HealthController) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	statuses := make(map[string]string, len(hc.checks))
	for name, check := range hc.checks {
		switch {
		case check == nil:
			statuses[name] = "disabled"
		case check(ctx) != nil:
			statuses[name] = "unhealthy"
		default:
			statuses[name] = "healthy"
		}
	}

	response := utils.HealthCheckResponse(statuses, hc.version, time.Since(hc.startedAt).Round(time.Second).String())
	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response)
}
