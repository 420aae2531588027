package controllers

import (
	"strconv"

	"touristsafety/services"
	"touristsafety/utils"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	dashboardService *services.DashboardService
}

func NewDashboardController(dashboardService *services.DashboardService) *DashboardController {
	return &DashboardController{
		dashboardService: dashboardService,
	}
}

// GetStats is the admin overview of alerts, zones and background jobs.
// @Router /dashboard/stats [get]
func (dc *DashboardController) GetStats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 90 {
		utils.BadRequestResponse(c, "days must be between 1 and 90")
		return
	}

	stats, err := dc.dashboardService.GetStats(c.Request.Context(), days)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Dashboard stats retrieved", stats)
}
