package utils

import (
	"errors"
	"math"
	"time"

	"touristsafety/models"
)

const (
	EarthRadiusKm = 6371.0
	EarthRadiusM  = 6371000.0
	DegToRad      = math.Pi / 180.0
	RadToDeg      = 180.0 / math.Pi
)

// ErrInvalidGeometry is returned for polygons with fewer than three vertices
// and other zone shapes that cannot be evaluated.
var ErrInvalidGeometry = errors.New("invalid geometry")

// DistanceMeters returns the great-circle distance between a and b using the
// Haversine formula.
func DistanceMeters(a, b models.Coordinate) float64 {
	lat1Rad := a.Latitude * DegToRad
	lat2Rad := b.Latitude * DegToRad

	dlat := (b.Latitude - a.Latitude) * DegToRad
	dlon := (b.Longitude - a.Longitude) * DegToRad

	h := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusM * c
}

// PointInPolygon runs an even-odd ray cast treating longitude/latitude as
// planar x/y. Points exactly on an edge may land either way.
func PointInPolygon(p models.Coordinate, vertices []models.Coordinate) (bool, error) {
	if len(vertices) < 3 {
		return false, ErrInvalidGeometry
	}

	x, y := p.Longitude, p.Latitude
	inside := false
	j := len(vertices) - 1
	for i := 0; i < len(vertices); i++ {
		xi, yi := vertices[i].Longitude, vertices[i].Latitude
		xj, yj := vertices[j].Longitude, vertices[j].Latitude

		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}

	return inside, nil
}

// PointInCircle reports whether p lies within radiusMeters of center.
func PointInCircle(p, center models.Coordinate, radiusMeters float64) bool {
	return DistanceMeters(p, center) <= radiusMeters
}

// IsValidCoordinate checks if latitude and longitude values are valid
func IsValidCoordinate(c models.Coordinate) bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// ValidateGeofence checks the shape invariants of a zone: polygons need at
// least three valid vertices, circles a valid center and a positive radius.
func ValidateGeofence(g models.Geofence) error {
	if !g.RiskLevel.Valid() {
		return ErrInvalidGeometry
	}

	switch g.Kind {
	case models.ZoneKindPolygon:
		if len(g.Vertices) < 3 {
			return ErrInvalidGeometry
		}
		for _, v := range g.Vertices {
			if !IsValidCoordinate(v) {
				return ErrInvalidGeometry
			}
		}
	case models.ZoneKindCircle:
		if g.Center == nil || !IsValidCoordinate(*g.Center) {
			return ErrInvalidGeometry
		}
		if !(g.RadiusMeters > 0) || math.IsInf(g.RadiusMeters, 0) {
			return ErrInvalidGeometry
		}
	default:
		return ErrInvalidGeometry
	}

	return nil
}

// GeofenceContains evaluates a validated geofence against p.
func GeofenceContains(g models.Geofence, p models.Coordinate) (bool, error) {
	switch g.Kind {
	case models.ZoneKindPolygon:
		return PointInPolygon(p, g.Vertices)
	case models.ZoneKindCircle:
		if g.Center == nil {
			return false, ErrInvalidGeometry
		}
		return PointInCircle(p, *g.Center, g.RadiusMeters), nil
	}
	return false, ErrInvalidGeometry
}

// SpeedBetween returns the average speed in m/s needed to move from a to b.
// Zero or negative time differences yield 0.
func SpeedBetween(a models.Coordinate, at time.Time, b models.Coordinate, bt time.Time) float64 {
	dt := bt.Sub(at).Seconds()
	if dt <= 0 {
		return 0
	}
	return DistanceMeters(a, b) / dt
}
