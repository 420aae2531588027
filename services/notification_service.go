package services

import (
	"context"
	"errors"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationStore is the persistence the in-app inbox needs.
type NotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetUserNotifications(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, page, pageSize int) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, userID primitive.ObjectID, id string) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// RealtimeBroadcaster pushes a message to a connected user's sockets.
type RealtimeBroadcaster interface {
	SendToUser(userID string, message models.WSMessage)
}

// NotificationService is the delivery fan-out for the safety core: it
// implements NotificationSink over email, SMS, FCM and the in-app inbox.
type NotificationService struct {
	notificationRepo NotificationStore
	users            UserStore
	email            EmailSender
	sms              SMSSender
	push             PushSender
	realtime         RealtimeBroadcaster
}

func NewNotificationService(
	notificationRepo NotificationStore,
	users UserStore,
	email EmailSender,
	sms SMSSender,
	push PushSender,
	realtime RealtimeBroadcaster,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		users:            users,
		email:            email,
		sms:              sms,
		push:             push,
		realtime:         realtime,
	}
}

// =================== DELIVERY ===================

func (ns *NotificationService) SendEmail(ctx context.Context, address, subject, body string) error {
	if ns.email == nil {
		return utils.NewDependencyFailure("email", errors.New("email delivery not configured"))
	}
	return ns.email.SendEmail(ctx, address, subject, body)
}

func (ns *NotificationService) SendSMS(ctx context.Context, phone, message string) error {
	if ns.sms == nil {
		return utils.NewDependencyFailure("sms", errors.New("sms delivery not configured"))
	}
	return ns.sms.SendSMS(ctx, phone, message)
}

// PushToUser records an in-app notification, mirrors it to the user's open
// sockets and sends an FCM push when a device token is registered. It fails
// only when neither the inbox record nor the push got through.
func (ns *NotificationService) PushToUser(ctx context.Context, userID, title, body string, data map[string]string) error {
	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return err
	}

	priority := models.PriorityNormal
	if data["priority"] == models.PriorityHigh {
		priority = models.PriorityHigh
	}
	notificationType := models.NotificationSystemMessage
	if t, ok := data["notificationType"]; ok {
		notificationType = t
	} else if data["alertId"] != "" {
		notificationType = models.NotificationAlertUpdate
		if data["type"] == string(models.AlertTypeSOS) && data["status"] == "" {
			notificationType = models.NotificationSOSActivated
		}
	}

	notification := &models.Notification{
		UserID:   userObjectID,
		Type:     notificationType,
		Title:    title,
		Body:     body,
		Data:     data,
		Priority: priority,
	}

	recordErr := ns.notificationRepo.Create(ctx, notification)
	if recordErr != nil {
		logrus.WithError(recordErr).WithField("userId", userID).Warn("Failed to store in-app notification")
	} else if ns.realtime != nil {
		ns.realtime.SendToUser(userID, models.WSMessage{
			Type:      models.WSTypeNotification,
			Data:      notification,
			UserID:    userID,
			Timestamp: time.Now(),
		})
	}

	pushErr := ns.pushToDevice(ctx, userObjectID, title, body, data, priority)
	if recordErr == nil {
		if pushErr != nil && !errors.Is(pushErr, ErrNoDeviceToken) {
			logrus.WithError(pushErr).WithField("userId", userID).Warn("Push delivery failed, in-app notification stored")
		}
		return nil
	}
	if pushErr == nil {
		return nil
	}
	return utils.NewDependencyFailure("push", errors.Join(recordErr, pushErr))
}

func (ns *NotificationService) pushToDevice(ctx context.Context, userID primitive.ObjectID, title, body string, data map[string]string, priority string) error {
	if ns.push == nil {
		return ErrNoDeviceToken
	}
	user, err := ns.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.Settings.NotificationsEnabled && priority != models.PriorityHigh {
		return ErrNoDeviceToken
	}
	return ns.push.SendPush(ctx, user.DeviceToken, title, body, data, priority)
}

// =================== INBOX ===================

func (ns *NotificationService) GetUserNotifications(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) (*models.NotificationListResponse, int64, error) {
	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return nil, 0, err
	}

	notifications, total, err := ns.notificationRepo.GetUserNotifications(ctx, userObjectID, unreadOnly, page, pageSize)
	if err != nil {
		return nil, 0, utils.NewDatabaseError("list notifications", err)
	}

	unread, err := ns.notificationRepo.UnreadCount(ctx, userObjectID)
	if err != nil {
		return nil, 0, utils.NewDatabaseError("count notifications", err)
	}

	return &models.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unread,
	}, total, nil
}

func (ns *NotificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return err
	}
	return ns.notificationRepo.MarkRead(ctx, userObjectID, notificationID)
}

func (ns *NotificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return 0, err
	}
	return ns.notificationRepo.MarkAllRead(ctx, userObjectID)
}
