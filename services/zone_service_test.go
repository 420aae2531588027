package services

import (
	"context"
	"testing"

	"touristsafety/models"
	"touristsafety/utils"
)

func circleRequest(name string, risk models.RiskLevel, center models.Coordinate, radius float64) models.CreateZoneRequest {
	return models.CreateZoneRequest{
		Name:         name,
		Kind:         models.ZoneKindCircle,
		ZoneType:     models.ZoneTypeRisky,
		RiskLevel:    risk,
		Center:       &center,
		RadiusMeters: radius,
	}
}

func TestZoneServiceMutationsReloadIndex(t *testing.T) {
	t.Parallel()

	index := NewZoneIndex()
	svc := NewZoneService(&memZoneStore{}, index)
	ctx := context.Background()
	admin := "65f1a2b3c4d5e6f708091a2b"

	zone, err := svc.CreateZone(ctx, admin, circleRequest("old fort", models.RiskMedium, marketCenter, 800))
	if err != nil {
		t.Fatalf("CreateZone=%v", err)
	}
	if got := index.Classify(marketCenter); got == nil || got.RiskLevel != models.RiskMedium {
		t.Fatalf("Classify after create=%+v want medium", got)
	}

	high := models.RiskHigh
	if _, err := svc.UpdateZone(ctx, zone.ID.Hex(), models.UpdateZoneRequest{RiskLevel: &high}); err != nil {
		t.Fatalf("UpdateZone=%v", err)
	}
	if got := index.Classify(marketCenter); got == nil || got.RiskLevel != models.RiskHigh {
		t.Fatalf("Classify after update=%+v want high", got)
	}

	inactive := false
	if _, err := svc.UpdateZone(ctx, zone.ID.Hex(), models.UpdateZoneRequest{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateZone(deactivate)=%v", err)
	}
	if got := index.Classify(marketCenter); got != nil {
		t.Fatalf("Classify after deactivate=%+v want nil", got)
	}

	if err := svc.DeleteZone(ctx, zone.ID.Hex()); err != nil {
		t.Fatalf("DeleteZone=%v", err)
	}
	if err := svc.DeleteZone(ctx, zone.ID.Hex()); !utils.IsNotFound(err) {
		t.Fatalf("DeleteZone(again)=%v want NotFound", err)
	}
}

func TestZoneServiceRejectsBadGeometry(t *testing.T) {
	t.Parallel()

	svc := NewZoneService(&memZoneStore{}, NewZoneIndex())
	ctx := context.Background()

	cases := []struct {
		name string
		req  models.CreateZoneRequest
	}{
		{"circle without center", models.CreateZoneRequest{
			Name: "nowhere", Kind: models.ZoneKindCircle, ZoneType: models.ZoneTypeRisky, RiskLevel: models.RiskLow, RadiusMeters: 100,
		}},
		{"circle zero radius", circleRequest("dot", models.RiskLow, marketCenter, 0)},
		{"two vertex polygon", models.CreateZoneRequest{
			Name: "line", Kind: models.ZoneKindPolygon, ZoneType: models.ZoneTypeRisky, RiskLevel: models.RiskLow,
			Vertices: []models.Coordinate{{Latitude: 1, Longitude: 1}, {Latitude: 2, Longitude: 2}},
		}},
		{"unknown risk", models.CreateZoneRequest{
			Name: "odd", Kind: models.ZoneKindCircle, ZoneType: models.ZoneTypeRisky, RiskLevel: "extreme", Center: &marketCenter, RadiusMeters: 10,
		}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateZone(ctx, "", tc.req); !utils.IsValidation(err) {
				t.Fatalf("CreateZone=%v want validation or geometry error", err)
			}
		})
	}

	if svc.ActiveCount() != 0 {
		t.Fatalf("ActiveCount=%d want 0", svc.ActiveCount())
	}
}

func TestZoneServiceFailedUpdateKeepsIndex(t *testing.T) {
	t.Parallel()

	index := NewZoneIndex()
	svc := NewZoneService(&memZoneStore{}, index)
	ctx := context.Background()

	zone, err := svc.CreateZone(ctx, "", circleRequest("bazaar", models.RiskHigh, marketCenter, 500))
	if err != nil {
		t.Fatalf("CreateZone=%v", err)
	}

	negative := -5.0
	if _, err := svc.UpdateZone(ctx, zone.ID.Hex(), models.UpdateZoneRequest{RadiusMeters: &negative}); !utils.IsValidation(err) {
		t.Fatalf("UpdateZone(negative radius)=%v want validation error", err)
	}
	if got := index.Classify(marketCenter); got == nil || got.ZoneName != "bazaar" {
		t.Fatalf("Classify=%+v want bazaar still active", got)
	}
}
