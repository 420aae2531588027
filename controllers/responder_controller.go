package controllers

import (
	"touristsafety/models"
	"touristsafety/services"
	"touristsafety/utils"

	"github.com/gin-gonic/gin"
)

type ResponderController struct {
	responderService *services.ResponderService
}

func NewResponderController(responderService *services.ResponderService) *ResponderController {
	return &ResponderController{
		responderService: responderService,
	}
}

// CreateResponder registers a police, ambulance, security or volunteer unit.
// @Router /responders [post]
func (rc *ResponderController) CreateResponder(c *gin.Context) {
	var req models.CreateResponderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	responder, err := rc.responderService.Create(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Responder registered successfully", responder)
}

// UpdatePosition moves a responder and optionally toggles availability.
// @Router /responders/{id}/position [put]
func (rc *ResponderController) UpdatePosition(c *gin.Context) {
	var req models.UpdateResponderPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	responder, err := rc.responderService.UpdatePosition(c.Request.Context(), c.Param("id"), utils.GetUserID(c), utils.GetUserRole(c), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Responder position updated", responder)
}
