package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coordinate is an immutable WGS84 position.
type Coordinate struct {
	Latitude  float64 `json:"latitude" bson:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude" validate:"longitude"`
}

// GeoPoint is the GeoJSON form stored next to coordinates so Mongo can
// serve 2dsphere queries.
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"` // [lng, lat]
}

func NewGeoPoint(c Coordinate) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{c.Longitude, c.Latitude}}
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

type ZoneKind string

const (
	ZoneKindPolygon ZoneKind = "polygon"
	ZoneKindCircle  ZoneKind = "circle"
)

// ZoneType is the descriptive category an operator gives a zone.
type ZoneType string

const (
	ZoneTypeSafe       ZoneType = "safe"
	ZoneTypeRisky      ZoneType = "risky"
	ZoneTypeRestricted ZoneType = "restricted"
)

// Geofence is a named region tagged with a risk level. Polygons carry
// Vertices, circles carry Center and RadiusMeters.
type Geofence struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Description  string             `json:"description,omitempty" bson:"description,omitempty"`
	Kind         ZoneKind           `json:"kind" bson:"kind"`
	ZoneType     ZoneType           `json:"zoneType" bson:"zoneType"`
	RiskLevel    RiskLevel          `json:"riskLevel" bson:"riskLevel"`
	Vertices     []Coordinate       `json:"vertices,omitempty" bson:"vertices,omitempty"`
	Center       *Coordinate        `json:"center,omitempty" bson:"center,omitempty"`
	RadiusMeters float64            `json:"radiusMeters,omitempty" bson:"radiusMeters,omitempty"`
	IsActive     bool               `json:"isActive" bson:"isActive"`
	CreatedBy    primitive.ObjectID `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ZoneMatch is the result of classifying a point against the active zones.
type ZoneMatch struct {
	ZoneID    string    `json:"zoneId"`
	ZoneName  string    `json:"zoneName"`
	RiskLevel RiskLevel `json:"riskLevel"`
	ZoneType  ZoneType  `json:"zoneType"`
}

// Requests

type CreateZoneRequest struct {
	Name         string       `json:"name" validate:"required,min=2,max=120"`
	Description  string       `json:"description" validate:"max=500"`
	Kind         ZoneKind     `json:"kind" validate:"required,oneof=polygon circle"`
	ZoneType     ZoneType     `json:"zoneType" validate:"required,oneof=safe risky restricted"`
	RiskLevel    RiskLevel    `json:"riskLevel" validate:"required,oneof=low medium high"`
	Vertices     []Coordinate `json:"vertices" validate:"omitempty,dive"`
	Center       *Coordinate  `json:"center" validate:"omitempty"`
	RadiusMeters float64      `json:"radiusMeters" validate:"gte=0"`
}

type UpdateZoneRequest struct {
	Name         *string      `json:"name" validate:"omitempty,min=2,max=120"`
	Description  *string      `json:"description" validate:"omitempty,max=500"`
	RiskLevel    *RiskLevel   `json:"riskLevel" validate:"omitempty,oneof=low medium high"`
	ZoneType     *ZoneType    `json:"zoneType" validate:"omitempty,oneof=safe risky restricted"`
	Vertices     []Coordinate `json:"vertices" validate:"omitempty,dive"`
	Center       *Coordinate  `json:"center" validate:"omitempty"`
	RadiusMeters *float64     `json:"radiusMeters" validate:"omitempty,gt=0"`
	IsActive     *bool        `json:"isActive"`
}

type CheckZoneRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

type CheckZoneResponse struct {
	InZone bool       `json:"inZone"`
	Zone   *ZoneMatch `json:"zone,omitempty"`
}
