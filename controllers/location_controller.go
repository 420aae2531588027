package controllers

import (
	"touristsafety/models"
	"touristsafety/services"
	"touristsafety/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type LocationController struct {
	locationService *services.LocationService
}

func NewLocationController(locationService *services.LocationService) *LocationController {
	return &LocationController{
		locationService: locationService,
	}
}

// ==================== TRACKING ENDPOINTS ====================

// Ping records the caller's position, classifies it against the active
// zones and returns the fresh safety assessment.
func (lc *LocationController) Ping(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.PingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid location data")
		return
	}

	response, err := lc.locationService.Ping(c.Request.Context(), userID, req)
	if err != nil {
		if !utils.IsValidation(err) {
			logrus.Errorf("Location ping failed: %v", err)
		}
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Location updated successfully", response)
}

// History returns the caller's samples since the given time, newest first.
func (lc *LocationController) History(c *gin.Context) {
	var query models.LocationHistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BadRequestResponse(c, "Invalid query parameters")
		return
	}

	samples, err := lc.locationService.History(c.Request.Context(), c.GetString("userID"), query)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Location history retrieved successfully", samples)
}

// ==================== SAFETY ENDPOINTS ====================

func (lc *LocationController) CheckZone(c *gin.Context) {
	var req models.CheckZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	response, err := lc.locationService.CheckZone(req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Zone check completed", response)
}

// SafetyScore scores the given coordinate, or the caller's last known
// position when none is passed.
func (lc *LocationController) SafetyScore(c *gin.Context) {
	var query models.SafetyScoreQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BadRequestResponse(c, "Invalid query parameters")
		return
	}

	assessment, err := lc.locationService.SafetyScore(c.Request.Context(), c.GetString("userID"), query)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Safety score calculated", assessment)
}
