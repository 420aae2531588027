package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AlertType string

const (
	AlertTypeSOS        AlertType = "sos"
	AlertTypeGeofence   AlertType = "geofence"
	AlertTypeInactivity AlertType = "inactivity"
	AlertTypeManual     AlertType = "manual"
	AlertTypeSystem     AlertType = "system"
)

type AlertStatus string

const (
	AlertStatusActive     AlertStatus = "active"
	AlertStatusResolved   AlertStatus = "resolved"
	AlertStatusCancelled  AlertStatus = "cancelled"
	AlertStatusFalseAlarm AlertStatus = "false_alarm"
)

// IsTerminal reports whether no further transition is allowed.
func (s AlertStatus) IsTerminal() bool {
	return s == AlertStatusResolved || s == AlertStatusCancelled || s == AlertStatusFalseAlarm
}

// CanTransitionTo encodes the alert state machine: Active moves to any
// terminal state, terminal states are absorbing.
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	return s == AlertStatusActive && next.IsTerminal()
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type ResponderRole string

const (
	ResponderPolice    ResponderRole = "police"
	ResponderAmbulance ResponderRole = "ambulance"
	ResponderSecurity  ResponderRole = "security"
	ResponderVolunteer ResponderRole = "volunteer"
)

// Alert is a user or system raised incident. The responders list only grows
// while the alert is active.
type Alert struct {
	ID          primitive.ObjectID    `json:"id" bson:"_id,omitempty"`
	UserID      primitive.ObjectID    `json:"userId" bson:"userId"`
	Type        AlertType             `json:"type" bson:"type"`
	Status      AlertStatus           `json:"status" bson:"status"`
	Severity    Severity              `json:"severity" bson:"severity"`
	Coordinate  Coordinate            `json:"coordinate" bson:"coordinate"`
	Point       GeoPoint              `json:"-" bson:"point"`
	Accuracy    *float64              `json:"accuracy,omitempty" bson:"accuracy,omitempty"`
	Message     string                `json:"message,omitempty" bson:"message,omitempty"`
	Media       []string              `json:"media" bson:"media"`
	ZoneID      string                `json:"zoneId,omitempty" bson:"zoneId,omitempty"`
	Responders  []ResponderAssignment `json:"responders" bson:"responders"`
	Assessment  *SafetyAssessment     `json:"assessment,omitempty" bson:"assessment,omitempty"`
	Timestamp   time.Time             `json:"timestamp" bson:"timestamp"`
	ResolvedAt  *time.Time            `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	ResolvedBy  string                `json:"resolvedBy,omitempty" bson:"resolvedBy,omitempty"`
	StatusNotes string                `json:"statusNotes,omitempty" bson:"statusNotes,omitempty"`
	Events      []AlertEvent          `json:"events,omitempty" bson:"events,omitempty"`
	CreatedAt   time.Time             `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt" bson:"updatedAt"`
	// Version counts stored writes; every replace is conditional on it.
	Version     int64                 `json:"-" bson:"version"`
}

type ResponderAssignment struct {
	ResponderID     string        `json:"responderId" bson:"responderId"`
	Name            string        `json:"name,omitempty" bson:"name,omitempty"`
	Role            ResponderRole `json:"role" bson:"role"`
	DistanceMeters  float64       `json:"distanceMeters,omitempty" bson:"distanceMeters,omitempty"`
	Acknowledged    bool          `json:"acknowledged" bson:"acknowledged"`
	AcknowledgedAt  *time.Time    `json:"acknowledgedAt,omitempty" bson:"acknowledgedAt,omitempty"`
	ResponseTimeSec *int64        `json:"responseTimeSec,omitempty" bson:"responseTimeSec,omitempty"`
}

// AlertEvent is an entry in the alert's audit trail.
type AlertEvent struct {
	Type        string    `json:"type" bson:"type"`
	Description string    `json:"description" bson:"description"`
	Actor       string    `json:"actor,omitempty" bson:"actor,omitempty"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}

// Alert event types
const (
	AlertEventCreated           = "created"
	AlertEventContactNotified   = "contact_notified"
	AlertEventContactFailed     = "contact_failed"
	AlertEventResponderAssigned = "responder_assigned"
	AlertEventResponderAck      = "responder_acknowledged"
	AlertEventStatusChanged     = "status_changed"
)

// Requests

type SOSRequest struct {
	Latitude  float64  `json:"latitude" validate:"latitude"`
	Longitude float64  `json:"longitude" validate:"longitude"`
	Accuracy  *float64 `json:"accuracy" validate:"omitempty,gte=0"`
	Message   string   `json:"message" validate:"max=1000"`
	Media     []string `json:"media" validate:"omitempty,max=10,dive,url"`
}

type CreateAlertRequest struct {
	Type      AlertType `json:"type" validate:"required,oneof=geofence inactivity manual system"`
	Severity  Severity  `json:"severity" validate:"required,oneof=low medium high critical"`
	Latitude  float64   `json:"latitude" validate:"latitude"`
	Longitude float64   `json:"longitude" validate:"longitude"`
	Message   string    `json:"message" validate:"max=1000"`
	Media     []string  `json:"media" validate:"omitempty,max=10,dive,url"`
}

type UpdateAlertStatusRequest struct {
	Status AlertStatus `json:"status" validate:"required,oneof=resolved cancelled false_alarm"`
	Notes  string      `json:"notes" validate:"max=1000"`
}

// AcknowledgeRequest names the responder. Responder accounts may omit it;
// their own record is used.
type AcknowledgeRequest struct {
	ResponderID string `json:"responderId"`
}

type AlertListQuery struct {
	Status AlertStatus `form:"status" validate:"omitempty,oneof=active resolved cancelled false_alarm"`
	Type   AlertType   `form:"type" validate:"omitempty,oneof=sos geofence inactivity manual system"`
	Page   int         `form:"page"`
	Limit  int         `form:"limit"`
}

// AlertSummary aggregates a user's alerts over a window.
type AlertSummary struct {
	Total    int64                 `json:"total"`
	ByStatus map[AlertStatus]int64 `json:"byStatus"`
	ByType   map[AlertType]int64   `json:"byType"`
	Since    time.Time             `json:"since"`
}
