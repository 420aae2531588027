package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Responder is a registered police/ambulance/security/volunteer unit.
type Responder struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name       string             `json:"name" bson:"name"`
	Role       ResponderRole      `json:"role" bson:"role"`
	Phone      string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Email      string             `json:"email,omitempty" bson:"email,omitempty"`
	UserID     primitive.ObjectID `json:"userId,omitempty" bson:"userId,omitempty"`
	Coordinate Coordinate         `json:"coordinate" bson:"coordinate"`
	Point      GeoPoint           `json:"-" bson:"point"`
	Available  bool               `json:"available" bson:"available"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ResponderRef is what the directory hands back for a nearby lookup.
type ResponderRef struct {
	ResponderID    string        `json:"responderId"`
	Name           string        `json:"name"`
	Role           ResponderRole `json:"role"`
	DistanceMeters float64       `json:"distanceMeters"`
}

type CreateResponderRequest struct {
	Name      string        `json:"name" validate:"required,max=120"`
	Role      ResponderRole `json:"role" validate:"required,oneof=police ambulance security volunteer"`
	Phone     string        `json:"phone" validate:"omitempty,phone"`
	Email     string        `json:"email" validate:"omitempty,email"`
	UserID    string        `json:"userId" validate:"omitempty,len=24,hexadecimal"`
	Latitude  float64       `json:"latitude" validate:"latitude"`
	Longitude float64       `json:"longitude" validate:"longitude"`
}

type UpdateResponderPositionRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Available *bool   `json:"available"`
}
