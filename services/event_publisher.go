package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"touristsafety/models"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Alert lifecycle event names, appended to the configured subject prefix.
const (
	EventAlertCreated       = "created"
	EventAlertStatusChanged = "status"
	EventAlertCoordinated   = "coordinated"
	EventAlertAcknowledged  = "acknowledged"
)

type EventPublisher interface {
	PublishAlertEvent(ctx context.Context, event string, payload AlertEvent) error
}

// AlertEvent is the message body published for alert lifecycle events.
type AlertEvent struct {
	AlertID    string             `json:"alertId"`
	UserID     string             `json:"userId"`
	Type       models.AlertType   `json:"type"`
	Status     models.AlertStatus `json:"status"`
	Severity   models.Severity    `json:"severity"`
	Coordinate models.Coordinate  `json:"coordinate"`
	Details    map[string]any     `json:"details,omitempty"`
	OccurredAt time.Time          `json:"occurredAt"`
}

func NewAlertEvent(alert *models.Alert, at time.Time, details map[string]any) AlertEvent {
	return AlertEvent{
		AlertID:    alert.ID.Hex(),
		UserID:     alert.UserID.Hex(),
		Type:       alert.Type,
		Status:     alert.Status,
		Severity:   alert.Severity,
		Coordinate: alert.Coordinate,
		Details:    details,
		OccurredAt: at,
	}
}

// NATSEventPublisher publishes alert events on "<prefix>.<event>".
type NATSEventPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSEventPublisher(conn *nats.Conn, prefix string) *NATSEventPublisher {
	if prefix == "" {
		prefix = "alerts"
	}
	return &NATSEventPublisher{conn: conn, prefix: prefix}
}

func (p *NATSEventPublisher) PublishAlertEvent(ctx context.Context, event string, payload AlertEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.prefix, event)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// LogEventPublisher is used when no broker is configured.
type LogEventPublisher struct{}

func (LogEventPublisher) PublishAlertEvent(_ context.Context, event string, payload AlertEvent) error {
	logrus.WithFields(logrus.Fields{
		"event":   event,
		"alertId": payload.AlertID,
		"status":  payload.Status,
	}).Debug("Alert event")
	return nil
}
