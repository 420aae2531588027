// models/websocket.go
package models

import (
	"time"
)

// WebSocket Message Types
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	UserID    string      `json:"userId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"requestId,omitempty"`
}

const (
	WSTypeAlertUpdate  = "alert_update"
	WSTypeNotification = "notification"
	WSTypeZoneWarning  = "zone_warning"
	WSTypePing         = "ping"
	WSTypePong         = "pong"
	WSTypeError        = "error"
)

type WSAlertUpdate struct {
	AlertID    string      `json:"alertId"`
	UserID     string      `json:"userId"`
	Type       AlertType   `json:"type"`
	Status     AlertStatus `json:"status"`
	Severity   Severity    `json:"severity"`
	Coordinate Coordinate  `json:"coordinate"`
	Message    string      `json:"message,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

const (
	WSTypeSuccess           = "success"
	WSRequestLocationUpdate = "location_update"
)

const (
	WSErrorInvalidMessage  = "INVALID_MESSAGE"
	WSErrorInvalidLocation = "INVALID_LOCATION"
	WSErrorRateLimit       = "RATE_LIMIT"
	WSErrorInternal        = "INTERNAL_ERROR"
)

// WSRequest is a client-to-server frame.
type WSRequest struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	RequestID string                 `json:"requestId,omitempty"`
}

type WSError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type WSHubStats struct {
	ActiveConnections int       `json:"activeConnections"`
	ConnectedUsers    int       `json:"connectedUsers"`
	TotalConnections  int64     `json:"totalConnections"`
	MessagesSent      int64     `json:"messagesSent"`
	MessagesDropped   int64     `json:"messagesDropped"`
	StartTime         time.Time `json:"startTime"`
}
