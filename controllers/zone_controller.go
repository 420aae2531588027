package controllers

import (
	"touristsafety/models"
	"touristsafety/services"
	"touristsafety/utils"

	"github.com/gin-gonic/gin"
)

// ZoneController is the admin surface over geofences. Every change
// reloads the in-memory index before the response is written.
type ZoneController struct {
	zoneService *services.ZoneService
}

func NewZoneController(zoneService *services.ZoneService) *ZoneController {
	return &ZoneController{
		zoneService: zoneService,
	}
}

// @Router /zones [get]
func (zc *ZoneController) ListZones(c *gin.Context) {
	risk := models.RiskLevel(c.Query("risk"))
	if risk != "" && !risk.Valid() {
		utils.BadRequestResponse(c, "risk must be low, medium or high")
		return
	}
	page, limit := utils.GetPagination(c, 50, 200)

	zones, total, err := zc.zoneService.ListZones(c.Request.Context(), risk, page, limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Zones retrieved successfully", zones, utils.CreatePaginationMeta(page, limit, total))
}

// @Router /zones/{id} [get]
func (zc *ZoneController) GetZone(c *gin.Context) {
	zone, err := zc.zoneService.GetZone(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Zone retrieved successfully", zone)
}

// CreateZone validates the polygon and stores a new zone
// @Router /zones [post]
func (zc *ZoneController) CreateZone(c *gin.Context) {
	var req models.CreateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	zone, err := zc.zoneService.CreateZone(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Zone created successfully", zone)
}

// @Router /zones/{id} [put]
func (zc *ZoneController) UpdateZone(c *gin.Context) {
	var req models.UpdateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	zone, err := zc.zoneService.UpdateZone(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Zone updated successfully", zone)
}

// @Router /zones/{id} [delete]
func (zc *ZoneController) DeleteZone(c *gin.Context) {
	if err := zc.zoneService.DeleteZone(c.Request.Context(), c.Param("id")); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Zone deleted successfully", nil)
}
