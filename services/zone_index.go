package services

import (
	"fmt"
	"sync/atomic"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/sirupsen/logrus"
)

// ZoneIndex answers which configured geofence contains a point.
//
// Zones are scanned in load order and the first containing zone wins, even
// when a later zone is smaller or nearer. Operators control precedence by
// ordering. The active set is swapped as a whole, so Classify never sees a
// partially loaded set.
type ZoneIndex struct {
	zones atomic.Pointer[[]models.Geofence]
}

func NewZoneIndex() *ZoneIndex {
	zi := &ZoneIndex{}
	empty := []models.Geofence{}
	zi.zones.Store(&empty)
	return zi
}

// LoadZones validates every zone and then replaces the active set. A single
// invalid zone rejects the whole batch and the previous set stays active.
func (zi *ZoneIndex) LoadZones(zones []models.Geofence) error {
	next := make([]models.Geofence, 0, len(zones))
	for i, z := range zones {
		if err := utils.ValidateGeofence(z); err != nil {
			return utils.NewInvalidGeometryError(fmt.Sprintf("zone %d (%s): %s kind with %d vertices", i, z.Name, z.Kind, len(z.Vertices)))
		}
		next = append(next, copyGeofence(z))
	}

	zi.zones.Store(&next)
	logrus.WithField("zones", len(next)).Info("Zone index reloaded")
	return nil
}

// Classify returns the first zone containing p, or nil when p is
// unclassified. Callers treat nil as low risk.
func (zi *ZoneIndex) Classify(p models.Coordinate) *models.ZoneMatch {
	zones := *zi.zones.Load()
	for i := range zones {
		inside, err := utils.GeofenceContains(zones[i], p)
		if err != nil || !inside {
			continue
		}
		return &models.ZoneMatch{
			ZoneID:    zones[i].ID.Hex(),
			ZoneName:  zones[i].Name,
			RiskLevel: zones[i].RiskLevel,
			ZoneType:  zones[i].ZoneType,
		}
	}
	return nil
}

// Zones returns a snapshot of the active set in classification order.
func (zi *ZoneIndex) Zones() []models.Geofence {
	zones := *zi.zones.Load()
	out := make([]models.Geofence, len(zones))
	for i := range zones {
		out[i] = copyGeofence(zones[i])
	}
	return out
}

func (zi *ZoneIndex) Len() int {
	return len(*zi.zones.Load())
}

func copyGeofence(z models.Geofence) models.Geofence {
	if z.Vertices != nil {
		z.Vertices = append([]models.Coordinate(nil), z.Vertices...)
	}
	if z.Center != nil {
		c := *z.Center
		z.Center = &c
	}
	return z
}
