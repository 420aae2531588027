package controllers

import (
	"touristsafety/models"
	"touristsafety/services"
	"touristsafety/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UserController struct {
	userService *services.UserService
}

func NewUserController(userService *services.UserService) *UserController {
	return &UserController{
		userService: userService,
	}
}

// GetProfile gets user's profile
// @Summary Get user profile
// @Description Get authenticated tourist's profile, contacts and itinerary
// @Tags Users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 401 {object} models.APIResponse
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	user, err := uc.userService.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		logrus.Errorf("Get profile failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Profile retrieved successfully", user)
}

// UpdateProfile updates user's profile
// @Summary Update user profile
// @Tags Users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.UpdateProfileRequest true "Updated profile data"
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 400 {object} models.APIResponse
// @Router /user/profile [put]
func (uc *UserController) UpdateProfile(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	user, err := uc.userService.UpdateUserProfile(c.Request.Context(), userID, req)
	if err != nil {
		logrus.Errorf("Update profile failed: %v", err)
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Profile updated successfully", user)
}

// UpdateEmergencyContacts replaces the caller's emergency contact list
// @Summary Replace emergency contacts
// @Tags Users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.UpdateEmergencyContactsRequest true "Contacts"
// @Success 200 {object} models.APIResponse{data=[]models.EmergencyContact}
// @Router /user/emergency-contacts [put]
func (uc *UserController) UpdateEmergencyContacts(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.UpdateEmergencyContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	contacts, err := uc.userService.UpdateEmergencyContacts(c.Request.Context(), userID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency contacts updated successfully", contacts)
}

// AddItinerary appends a trip leg
// @Router /user/itinerary [post]
func (uc *UserController) AddItinerary(c *gin.Context) {
	userID := c.GetString("userID")

	var req models.AddItineraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	item, err := uc.userService.AddItinerary(c.Request.Context(), userID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Itinerary item added", item)
}

// @Router /user/itinerary/{id} [delete]
func (uc *UserController) RemoveItinerary(c *gin.Context) {
	if err := uc.userService.RemoveItinerary(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Itinerary item removed", nil)
}
