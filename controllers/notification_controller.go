package controllers

import (
	"strconv"

	"touristsafety/services"
	"touristsafety/utils"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	notificationService *services.NotificationService
}

func NewNotificationController(notificationService *services.NotificationService) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
	}
}

// GetNotifications lists the caller's in-app notifications
// @Summary Get notifications
// @Tags Notifications
// @Security BearerAuth
// @Produce json
// @Param unread query bool false "Only unread notifications"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} models.APIResponse{data=models.NotificationListResponse}
// @Router /notifications [get]
func (nc *NotificationController) GetNotifications(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	page, limit := utils.GetPagination(c, 20, 100)

	result, total, err := nc.notificationService.GetUserNotifications(c.Request.Context(), userID, unreadOnly, page, limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Notifications retrieved successfully", result, utils.CreatePaginationMeta(page, limit, total))
}

// MarkAsRead marks one notification read
// @Router /notifications/{id}/read [put]
func (nc *NotificationController) MarkAsRead(c *gin.Context) {
	if err := nc.notificationService.MarkAsRead(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification marked as read", nil)
}

// MarkAllAsRead marks every unread notification read
// @Router /notifications/read-all [put]
func (nc *NotificationController) MarkAllAsRead(c *gin.Context) {
	count, err := nc.notificationService.MarkAllAsRead(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "All notifications marked as read", gin.H{"updated": count})
}
