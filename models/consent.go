package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConsentType string

const (
	ConsentTracking          ConsentType = "tracking"
	ConsentNotifications     ConsentType = "notifications"
	ConsentDataCollection    ConsentType = "data_collection"
	ConsentEmergencyContacts ConsentType = "emergency_contacts"
)

var ConsentTypes = []ConsentType{
	ConsentTracking,
	ConsentNotifications,
	ConsentDataCollection,
	ConsentEmergencyContacts,
}

// ConsentRecord is append-only: a change of mind is a new record.
type ConsentRecord struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Type      ConsentType        `json:"type" bson:"type"`
	Granted   bool               `json:"granted" bson:"granted"`
	Purpose   string             `json:"purpose,omitempty" bson:"purpose,omitempty"`
	Version   string             `json:"version" bson:"version"`
	IPAddress string             `json:"-" bson:"ipAddress,omitempty"`
	ExpiresAt *time.Time         `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// Effective reports whether the record still grants consent at t.
func (c *ConsentRecord) Effective(t time.Time) bool {
	if !c.Granted {
		return false
	}
	return c.ExpiresAt == nil || t.Before(*c.ExpiresAt)
}

type RecordConsentRequest struct {
	Type      ConsentType `json:"type" validate:"required,oneof=tracking notifications data_collection emergency_contacts"`
	Granted   bool        `json:"granted"`
	Purpose   string      `json:"purpose" validate:"max=500"`
	Version   string      `json:"version" validate:"omitempty,max=20"`
	ExpiresAt *time.Time  `json:"expiresAt"`
}

// ConsentStatus is the current decision per consent type.
type ConsentStatus map[ConsentType]bool
