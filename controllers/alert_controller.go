package controllers

import (
	"strconv"
	"time"

	"touristsafety/models"
	"touristsafety/services"
	"touristsafety/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AlertController struct {
	coordinator  *services.AlertCoordinator
	alertQueries *services.AlertQueryService
	responders   *services.ResponderService
}

func NewAlertController(coordinator *services.AlertCoordinator, alertQueries *services.AlertQueryService, responders *services.ResponderService) *AlertController {
	return &AlertController{
		coordinator:  coordinator,
		alertQueries: alertQueries,
		responders:   responders,
	}
}

// ============== ALERT CREATION ==============

// CreateSOS raises an SOS for the caller. The response is returned as soon
// as the alert is stored; contact notification runs in the background.
// @Summary Trigger SOS
// @Tags Alerts
// @Accept json
// @Produce json
// @Param request body models.SOSRequest true "SOS location"
// @Success 201 {object} models.APIResponse{data=models.Alert}
// @Failure 400 {object} models.APIResponse
// @Failure 429 {object} models.APIResponse
// @Router /alerts/sos [post]
func (ac *AlertController) CreateSOS(c *gin.Context) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.SOSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	alert, err := ac.coordinator.CreateSOS(c.Request.Context(), userID, req)
	if err != nil {
		logrus.WithError(err).WithField("userId", userID).Error("SOS creation failed")
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "SOS alert sent. Help is on the way.", alert)
}

// CreateAlert records a non-SOS alert for the caller.
// @Router /alerts [post]
func (ac *AlertController) CreateAlert(c *gin.Context) {
	userID := utils.GetUserID(c)

	var req models.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	alert, err := ac.coordinator.CreateAlert(c.Request.Context(), userID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Alert created successfully", alert)
}

// ============== ALERT QUERIES ==============

// ListAlerts returns the caller's alerts. Responders and admins see all.
// @Router /alerts [get]
func (ac *AlertController) ListAlerts(c *gin.Context) {
	var query models.AlertListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BadRequestResponse(c, "Invalid query parameters")
		return
	}
	page, limit := utils.GetPagination(c, 20, 100)

	alerts, total, err := ac.alertQueries.ListAlerts(c.Request.Context(), utils.GetUserID(c), utils.GetUserRole(c), query, page, limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Alerts retrieved successfully", alerts, utils.CreatePaginationMeta(page, limit, total))
}

// Summary counts the caller's alerts over the last `days` days.
// @Router /alerts/summary [get]
func (ac *AlertController) Summary(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		utils.BadRequestResponse(c, "days must be between 1 and 365")
		return
	}

	summary, err := ac.alertQueries.Summary(c.Request.Context(), utils.GetUserID(c), days)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Alert summary retrieved successfully", summary)
}

// @Router /alerts/{id} [get]
func (ac *AlertController) GetAlert(c *gin.Context) {
	alert, err := ac.coordinator.GetAlertForUser(c.Request.Context(), c.Param("id"), utils.GetUserID(c), utils.GetUserRole(c))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Alert retrieved successfully", alert)
}

// ============== LIFECYCLE ==============

// UpdateStatus moves an alert to a terminal state. Only the owner,
// responders and admins may do so; terminal alerts reject the change.
// @Router /alerts/{id}/status [put]
func (ac *AlertController) UpdateStatus(c *gin.Context) {
	userID := utils.GetUserID(c)
	alertID := c.Param("id")

	var req models.UpdateAlertStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	// ownership check goes through the same visibility rules as reads
	if _, err := ac.coordinator.GetAlertForUser(c.Request.Context(), alertID, userID, utils.GetUserRole(c)); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	alert, err := ac.coordinator.UpdateStatus(c.Request.Context(), alertID, req.Status, userID, req.Notes)
	if err != nil {
		if !utils.IsInvalidTransition(err) && !utils.IsValidation(err) {
			logrus.WithError(err).WithField("alertId", alertID).Error("Alert status update failed")
		}
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Alert status updated successfully", alert)
}

// Acknowledge records a responder's acknowledgement. Responders acknowledge
// as themselves; admins name the responder. Repeating it for the same
// responder returns the alert unchanged.
// @Router /alerts/{id}/acknowledge [post]
func (ac *AlertController) Acknowledge(c *gin.Context) {
	var req models.AcknowledgeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request body")
			return
		}
	}

	responderID, err := ac.responders.ActingResponderID(c.Request.Context(), utils.GetUserID(c), utils.GetUserRole(c), req.ResponderID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	alert, err := ac.coordinator.AcknowledgeResponder(c.Request.Context(), c.Param("id"), responderID, time.Now())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Acknowledgement recorded", alert)
}
