package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types
const (
	NotificationSOSActivated  = "sos_activated"
	NotificationAlertUpdate   = "alert_update"
	NotificationZoneWarning   = "zone_warning"
	NotificationSystemMessage = "system"
)

// Notification priorities
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Notification is an in-app record; push/email delivery is best-effort on
// top of it.
type Notification struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Type      string             `json:"type" bson:"type"`
	Title     string             `json:"title" bson:"title"`
	Body      string             `json:"body" bson:"body"`
	Data      map[string]string  `json:"data,omitempty" bson:"data,omitempty"`
	Priority  string             `json:"priority" bson:"priority"`
	IsRead    bool               `json:"isRead" bson:"isRead"`
	ReadAt    *time.Time         `json:"readAt,omitempty" bson:"readAt,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unreadCount"`
}
