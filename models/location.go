// models/location.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LocationSource string

const (
	SourcePing       LocationSource = "ping"
	SourceSOS        LocationSource = "sos"
	SourceCheckpoint LocationSource = "checkpoint"
)

// LocationSample is a single reported position. Samples are never updated;
// the storage layer expires them after the retention window.
type LocationSample struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID     primitive.ObjectID `json:"userId" bson:"userId"`
	Coordinate Coordinate         `json:"coordinate" bson:"coordinate"`
	Point      GeoPoint           `json:"-" bson:"point"`
	Accuracy   *float64           `json:"accuracy,omitempty" bson:"accuracy,omitempty"` // meters
	Speed      *float64           `json:"speed,omitempty" bson:"speed,omitempty"`       // m/s
	Source     LocationSource     `json:"source" bson:"source"`
	ZoneID     string             `json:"zoneId,omitempty" bson:"zoneId,omitempty"`
	RiskLevel  RiskLevel          `json:"riskLevel,omitempty" bson:"riskLevel,omitempty"`
	Timestamp  time.Time          `json:"timestamp" bson:"timestamp"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
}

// Location requests
type PingRequest struct {
	Latitude  float64        `json:"latitude" validate:"latitude"`
	Longitude float64        `json:"longitude" validate:"longitude"`
	Accuracy  *float64       `json:"accuracy" validate:"omitempty,gte=0"`
	Speed     *float64       `json:"speed" validate:"omitempty,gte=0"`
	Source    LocationSource `json:"source" validate:"omitempty,oneof=ping sos checkpoint"`
	Timestamp *time.Time     `json:"timestamp"`
}

type PingResponse struct {
	Sample     LocationSample   `json:"sample"`
	Zone       *ZoneMatch       `json:"zone,omitempty"`
	Assessment SafetyAssessment `json:"assessment"`
	AlertIDs   []string         `json:"alertIds,omitempty"`
}

type LocationHistoryQuery struct {
	Since time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit int       `form:"limit" validate:"omitempty,min=1,max=1000"`
}
