package services

import (
	"context"
	"testing"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	marketCenter = models.Coordinate{Latitude: 28.61, Longitude: 77.21}
	outsideZone  = models.Coordinate{Latitude: 28.70, Longitude: 77.21}
)

type locationFixture struct {
	service   *LocationService
	locations *memLocationStore
	raiser    *recordingRaiser
	socket    *recordingBroadcaster
	userID    string
	now       time.Time
}

func newLocationFixture(t *testing.T) *locationFixture {
	t.Helper()

	zi := NewZoneIndex()
	if err := zi.LoadZones([]models.Geofence{circleZone("night market", models.RiskHigh, marketCenter, 1500)}); err != nil {
		t.Fatalf("LoadZones: %v", err)
	}

	f := &locationFixture{
		locations: &memLocationStore{},
		raiser:    &recordingRaiser{},
		socket:    &recordingBroadcaster{},
		userID:    primitive.NewObjectID().Hex(),
		now:       time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC),
	}
	f.service = NewLocationService(
		f.locations,
		newMemAlertStore(),
		f.raiser,
		zi,
		NewSafetyScorer(zi, SafetyScorerConfig{}),
		f.socket,
		LocationServiceConfig{},
	)
	f.service.now = func() time.Time { return f.now }
	return f
}

func (f *locationFixture) ping(t *testing.T, c models.Coordinate, at time.Time) *models.PingResponse {
	t.Helper()
	resp, err := f.service.Ping(context.Background(), f.userID, models.PingRequest{
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Timestamp: &at,
	})
	if err != nil {
		t.Fatalf("Ping(%v)=%v", c, err)
	}
	return resp
}

func TestPingRaisesGeofenceAlertOncePerEntry(t *testing.T) {
	t.Parallel()

	f := newLocationFixture(t)
	start := f.now.Add(-2 * time.Hour)

	steps := []struct {
		where      models.Coordinate
		wantAlerts int
	}{
		{outsideZone, 0},
		{marketCenter, 1},
		{marketCenter, 0},
		{outsideZone, 0},
		{marketCenter, 1},
	}

	for i, step := range steps {
		resp := f.ping(t, step.where, start.Add(time.Duration(i)*20*time.Minute))
		if len(resp.AlertIDs) != step.wantAlerts {
			t.Fatalf("step %d: alerts=%d want %d", i, len(resp.AlertIDs), step.wantAlerts)
		}
	}

	types := f.raiser.types()
	if len(types) != 2 || types[0] != models.AlertTypeGeofence || types[1] != models.AlertTypeGeofence {
		t.Fatalf("raised=%v want two geofence alerts", types)
	}
	if f.socket.count() != 2 {
		t.Fatalf("zone warnings=%d want 2", f.socket.count())
	}
}

func TestPingClassifiesAndScores(t *testing.T) {
	t.Parallel()

	f := newLocationFixture(t)
	resp := f.ping(t, marketCenter, f.now)

	if resp.Zone == nil || resp.Zone.RiskLevel != models.RiskHigh {
		t.Fatalf("Zone=%+v want high-risk match", resp.Zone)
	}
	if resp.Sample.ZoneID != resp.Zone.ZoneID {
		t.Fatalf("Sample.ZoneID=%q want %q", resp.Sample.ZoneID, resp.Zone.ZoneID)
	}
	if resp.Sample.Source != models.SourcePing {
		t.Fatalf("Source=%q want %q", resp.Sample.Source, models.SourcePing)
	}
	if resp.Assessment.Score != 75 || !resp.Assessment.HasFactor(models.FactorHighRiskArea) {
		t.Fatalf("Assessment=%+v want 75 with high_risk_area", resp.Assessment)
	}
}

func TestPingFlagsAnomalousSpeed(t *testing.T) {
	t.Parallel()

	f := newLocationFixture(t)
	f.ping(t, outsideZone, f.now.Add(-2*time.Minute))
	// ~10 km north of the previous fix one minute later
	far := models.Coordinate{Latitude: 28.79, Longitude: 77.21}
	resp := f.ping(t, far, f.now.Add(-time.Minute))

	if len(resp.AlertIDs) != 1 {
		t.Fatalf("alerts=%d want 1", len(resp.AlertIDs))
	}
	if got := f.raiser.types(); got[0] != models.AlertTypeSystem {
		t.Fatalf("raised=%v want system alert", got)
	}
}

func TestPingValidation(t *testing.T) {
	t.Parallel()

	f := newLocationFixture(t)
	future := f.now.Add(time.Hour)

	cases := []struct {
		name   string
		userID string
		req    models.PingRequest
	}{
		{"latitude out of range", f.userID, models.PingRequest{Latitude: 95, Longitude: 10}},
		{"future timestamp", f.userID, models.PingRequest{Latitude: 10, Longitude: 10, Timestamp: &future}},
		{"bad source", f.userID, models.PingRequest{Latitude: 10, Longitude: 10, Source: "teleport"}},
		{"bad user", "nope", models.PingRequest{Latitude: 10, Longitude: 10}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Ping(context.Background(), tc.userID, tc.req)
			if !utils.IsValidation(err) {
				t.Fatalf("Ping=%v want validation error", err)
			}
		})
	}
}

func TestLocationHistoryNewestFirst(t *testing.T) {
	t.Parallel()

	f := newLocationFixture(t)
	for i := 0; i < 5; i++ {
		f.ping(t, outsideZone, f.now.Add(-time.Duration(5-i)*time.Hour))
	}

	samples, err := f.service.History(context.Background(), f.userID, models.LocationHistoryQuery{Limit: 3})
	if err != nil {
		t.Fatalf("History=%v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("len=%d want 3", len(samples))
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].Timestamp.After(samples[i-1].Timestamp) {
			t.Fatalf("History not newest first: %v before %v", samples[i-1].Timestamp, samples[i].Timestamp)
		}
	}
}

func TestSafetyScoreFallsBackToLatestSample(t *testing.T) {
	t.Parallel()

	f := newLocationFixture(t)

	if _, err := f.service.SafetyScore(context.Background(), f.userID, models.SafetyScoreQuery{}); !utils.IsNotFound(err) {
		t.Fatalf("SafetyScore without samples=%v want NotFound", err)
	}

	f.ping(t, marketCenter, f.now.Add(-time.Minute))
	got, err := f.service.SafetyScore(context.Background(), f.userID, models.SafetyScoreQuery{})
	if err != nil {
		t.Fatalf("SafetyScore=%v", err)
	}
	if !got.HasFactor(models.FactorHighRiskArea) {
		t.Fatalf("Factors=%v want high_risk_area", got.Factors)
	}

	lat := 1.0
	if _, err := f.service.SafetyScore(context.Background(), f.userID, models.SafetyScoreQuery{Latitude: &lat}); !utils.IsValidation(err) {
		t.Fatalf("SafetyScore with latitude only=%v want validation error", err)
	}
}

func TestCheckZone(t *testing.T) {
	t.Parallel()

	f := newLocationFixture(t)

	in, err := f.service.CheckZone(models.CheckZoneRequest{Latitude: marketCenter.Latitude, Longitude: marketCenter.Longitude})
	if err != nil || !in.InZone || in.Zone.ZoneName != "night market" {
		t.Fatalf("CheckZone(center)=%+v, %v want night market", in, err)
	}

	out, err := f.service.CheckZone(models.CheckZoneRequest{Latitude: outsideZone.Latitude, Longitude: outsideZone.Longitude})
	if err != nil || out.InZone || out.Zone != nil {
		t.Fatalf("CheckZone(outside)=%+v, %v want no zone", out, err)
	}
}
