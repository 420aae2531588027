// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser      = "user"
	RoleResponder = "responder"
	RoleAdmin     = "admin"
)

type User struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email    string             `json:"email" bson:"email"`
	Phone    string             `json:"phone" bson:"phone"`
	Password string             `json:"-" bson:"password"`

	// Basic Info
	FirstName   string `json:"firstName" bson:"firstName"`
	LastName    string `json:"lastName" bson:"lastName"`
	Nationality string `json:"nationality,omitempty" bson:"nationality,omitempty"`
	DeviceToken string `json:"-" bson:"deviceToken,omitempty"`
	DeviceType  string `json:"deviceType,omitempty" bson:"deviceType,omitempty"` // ios, android

	// Account Status
	IsActive      bool      `json:"isActive" bson:"isActive"`
	PhoneVerified bool      `json:"phoneVerified" bson:"phoneVerified"`
	OTPSecret     string    `json:"-" bson:"otpSecret,omitempty"`
	LastSeen      time.Time `json:"lastSeen" bson:"lastSeen"`
	Role          string    `json:"role" bson:"role"`

	EmergencyContacts []EmergencyContact `json:"emergencyContacts" bson:"emergencyContacts"`
	Itinerary         []TripItinerary    `json:"itinerary,omitempty" bson:"itinerary,omitempty"`
	Settings          UserSettings       `json:"settings" bson:"settings"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// EmergencyContact is owned by the user profile.
type EmergencyContact struct {
	Name         string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Phone        string `json:"phone" bson:"phone" validate:"required,phone"`
	Email        string `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Relationship string `json:"relationship" bson:"relationship" validate:"required,max=50"`
	IsPrimary    bool   `json:"isPrimary" bson:"isPrimary"`
}

type TripItinerary struct {
	ID          string     `json:"id" bson:"id"`
	Destination string     `json:"destination" bson:"destination"`
	Coordinate  Coordinate `json:"coordinate" bson:"coordinate"`
	StartDate   time.Time  `json:"startDate" bson:"startDate"`
	EndDate     time.Time  `json:"endDate" bson:"endDate"`
	Notes       string     `json:"notes,omitempty" bson:"notes,omitempty"`
}

type UserSettings struct {
	ShareLocation        bool   `json:"shareLocation" bson:"shareLocation"`
	NotificationsEnabled bool   `json:"notificationsEnabled" bson:"notificationsEnabled"`
	Language             string `json:"language" bson:"language"`
}

// Requests

type UpdateProfileRequest struct {
	FirstName   *string       `json:"firstName" validate:"omitempty,min=1,max=50"`
	LastName    *string       `json:"lastName" validate:"omitempty,max=50"`
	Nationality *string       `json:"nationality" validate:"omitempty,max=60"`
	DeviceToken *string       `json:"deviceToken" validate:"omitempty,max=4096"`
	DeviceType  *string       `json:"deviceType" validate:"omitempty,oneof=ios android web"`
	Settings    *UserSettings `json:"settings"`
}

type UpdateEmergencyContactsRequest struct {
	Contacts []EmergencyContact `json:"contacts" validate:"max=10,dive"`
}

type AddItineraryRequest struct {
	Destination string    `json:"destination" validate:"required,max=200"`
	Latitude    float64   `json:"latitude" validate:"latitude"`
	Longitude   float64   `json:"longitude" validate:"longitude"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required,gtfield=StartDate"`
	Notes       string    `json:"notes" validate:"max=500"`
}
