package controllers

import (
	"touristsafety/models"
	"touristsafety/services"
	"touristsafety/utils"

	"github.com/gin-gonic/gin"
)

type ConsentController struct {
	consentService *services.ConsentService
}

func NewConsentController(consentService *services.ConsentService) *ConsentController {
	return &ConsentController{
		consentService: consentService,
	}
}

// RecordConsent appends a grant or denial to the caller's consent log
// @Router /consent [post]
func (cc *ConsentController) RecordConsent(c *gin.Context) {
	var req models.RecordConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	record, err := cc.consentService.RecordConsent(c.Request.Context(), c.GetString("userID"), c.ClientIP(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Consent recorded", record)
}

// GetStatus returns the effective grant per consent type
// @Router /consent [get]
func (cc *ConsentController) GetStatus(c *gin.Context) {
	status, err := cc.consentService.GetStatus(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Consent status retrieved", status)
}

// @Router /consent/history [get]
func (cc *ConsentController) GetHistory(c *gin.Context) {
	history, err := cc.consentService.GetHistory(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Consent history retrieved", history)
}

// RevokeConsent appends a revocation for one consent type
// @Router /consent/{type} [delete]
func (cc *ConsentController) RevokeConsent(c *gin.Context) {
	record, err := cc.consentService.RevokeConsent(c.Request.Context(), c.GetString("userID"), c.ClientIP(), models.ConsentType(c.Param("type")))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Consent revoked", record)
}
