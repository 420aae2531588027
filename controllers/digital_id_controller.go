package controllers

import (
	"touristsafety/models"
	"touristsafety/services"
	"touristsafety/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type DigitalIDController struct {
	digitalIDService *services.DigitalIDService
}

func NewDigitalIDController(digitalIDService *services.DigitalIDService) *DigitalIDController {
	return &DigitalIDController{
		digitalIDService: digitalIDService,
	}
}

// Issue creates or renews the caller's digital tourist ID
// @Router /digital-id [post]
func (dc *DigitalIDController) Issue(c *gin.Context) {
	digitalID, err := dc.digitalIDService.Issue(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Digital ID issued", digitalID)
}

// GetQR returns the signed payload and its QR image
// @Router /digital-id/qr [get]
func (dc *DigitalIDController) GetQR(c *gin.Context) {
	qr, err := dc.digitalIDService.GetQR(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Digital ID QR generated", qr)
}

// Verify checks a scanned payload. Invalid signatures are reported in the
// body with a 200 so scanners can show the reason.
// @Router /digital-id/verify [post]
func (dc *DigitalIDController) Verify(c *gin.Context) {
	var req models.VerifyDigitalIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	result, err := dc.digitalIDService.Verify(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"verifier": c.GetString("userID"),
		"valid":    result.Valid,
	}).Info("Digital ID verified")

	utils.SuccessResponse(c, "Digital ID verification completed", result)
}

// @Router /digital-id [delete]
func (dc *DigitalIDController) Revoke(c *gin.Context) {
	if err := dc.digitalIDService.Revoke(c.Request.Context(), c.GetString("userID")); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Digital ID revoked", nil)
}
