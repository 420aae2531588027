package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DigitalID is the tourist identity card; at most one per user.
type DigitalID struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID         primitive.ObjectID `json:"userId" bson:"userId"`
	DocumentNumber string             `json:"documentNumber" bson:"documentNumber"`
	HolderName     string             `json:"holderName" bson:"holderName"`
	Nationality    string             `json:"nationality,omitempty" bson:"nationality,omitempty"`
	ChainHash      string             `json:"chainHash" bson:"chainHash"`
	IssuedAt       time.Time          `json:"issuedAt" bson:"issuedAt"`
	ExpiresAt      time.Time          `json:"expiresAt" bson:"expiresAt"`
	Revoked        bool               `json:"revoked" bson:"revoked"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (d *DigitalID) Expired(t time.Time) bool {
	return !t.Before(d.ExpiresAt)
}

// DigitalIDPayload is the JSON encoded into the QR code.
type DigitalIDPayload struct {
	UserID         string `json:"uid"`
	DocumentNumber string `json:"doc"`
	ChainHash      string `json:"hash"`
	ExpiresAt      int64  `json:"exp"`
}

type DigitalIDQRResponse struct {
	DigitalID DigitalID `json:"digitalId"`
	QRCode    string    `json:"qrCode"` // data:image/png;base64,...
	Payload   string    `json:"payload"`
}

type VerifyDigitalIDRequest struct {
	Payload string `json:"payload" validate:"required,base64"`
}

type VerifyDigitalIDResponse struct {
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	HolderName string `json:"holderName,omitempty"`
	ExpiresAt  int64  `json:"expiresAt,omitempty"`
}
