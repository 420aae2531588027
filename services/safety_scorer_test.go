package services

import (
	"reflect"
	"testing"
	"time"

	"touristsafety/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 15, hour, minute, 0, 0, time.UTC)
}

func TestSafetyScorerPenalties(t *testing.T) {
	t.Parallel()

	high := &models.ZoneMatch{ZoneID: "z-high", RiskLevel: models.RiskHigh}
	medium := &models.ZoneMatch{ZoneID: "z-med", RiskLevel: models.RiskMedium}
	low := &models.ZoneMatch{ZoneID: "z-low", RiskLevel: models.RiskLow}

	cases := []struct {
		name        string
		zone        *models.ZoneMatch
		when        time.Time
		alerts      int
		wantScore   int
		wantLevel   models.SafetyLevel
		wantFactors []models.FactorTag
	}{
		{"daytime unclassified", nil, at(12, 0), 0, 100, models.SafetyVeryLow, []models.FactorTag{}},
		{"low zone", low, at(12, 0), 0, 100, models.SafetyVeryLow, []models.FactorTag{}},
		{"medium zone", medium, at(12, 0), 0, 85, models.SafetyVeryLow, []models.FactorTag{models.FactorMediumRiskArea}},
		{"high zone", high, at(12, 0), 0, 75, models.SafetyLow, []models.FactorTag{models.FactorHighRiskArea}},
		{"20:59 is not night", nil, at(20, 59), 0, 100, models.SafetyVeryLow, []models.FactorTag{}},
		{"21:00 is night", nil, at(21, 0), 0, 85, models.SafetyVeryLow, []models.FactorTag{models.FactorNightTime}},
		{"05:59 is night", nil, at(5, 59), 0, 85, models.SafetyVeryLow, []models.FactorTag{models.FactorNightTime}},
		{"06:00 is day", nil, at(6, 0), 0, 100, models.SafetyVeryLow, []models.FactorTag{}},
		{"one alert", nil, at(12, 0), 1, 90, models.SafetyVeryLow, []models.FactorTag{models.FactorRecentAlerts}},
		{"alerts capped at five", nil, at(12, 0), 9, 50, models.SafetyMedium, []models.FactorTag{models.FactorRecentAlerts}},
		{"negative count ignored", nil, at(12, 0), -3, 100, models.SafetyVeryLow, []models.FactorTag{}},
		{
			"everything", high, at(23, 0), 5, 10, models.SafetyVeryHigh,
			[]models.FactorTag{models.FactorHighRiskArea, models.FactorNightTime, models.FactorRecentAlerts},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			scorer := NewSafetyScorer(staticZones{match: tc.zone}, SafetyScorerConfig{})
			got := scorer.Assess(models.SafetyInput{
				Coordinate:       models.Coordinate{Latitude: 28.61, Longitude: 77.21},
				Timestamp:        tc.when,
				RecentAlertCount: tc.alerts,
			})
			if got.Score != tc.wantScore {
				t.Fatalf("Score=%d want %d", got.Score, tc.wantScore)
			}
			if got.RiskLevel != tc.wantLevel {
				t.Fatalf("RiskLevel=%s want %s", got.RiskLevel, tc.wantLevel)
			}
			if !reflect.DeepEqual(got.Factors, tc.wantFactors) {
				t.Fatalf("Factors=%v want %v", got.Factors, tc.wantFactors)
			}
		})
	}
}

func TestLevelForScore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score int
		want  models.SafetyLevel
	}{
		{100, models.SafetyVeryLow},
		{80, models.SafetyVeryLow},
		{79, models.SafetyLow},
		{60, models.SafetyLow},
		{59, models.SafetyMedium},
		{40, models.SafetyMedium},
		{39, models.SafetyHigh},
		{20, models.SafetyHigh},
		{19, models.SafetyVeryHigh},
		{0, models.SafetyVeryHigh},
	}
	for _, tc := range cases {
		if got := LevelForScore(tc.score); got != tc.want {
			t.Fatalf("LevelForScore(%d)=%s want %s", tc.score, got, tc.want)
		}
	}
}

func TestSafetyScorerClamped(t *testing.T) {
	t.Parallel()

	high := &models.ZoneMatch{ZoneID: "z", RiskLevel: models.RiskHigh}
	// lift the cap so large counts would push far below zero
	scorer := NewSafetyScorer(staticZones{match: high}, SafetyScorerConfig{RecentAlertCap: 1 << 20})

	var history []models.LocationSample
	base := at(0, 0)
	for i := 0; i < 50; i++ {
		history = append(history, models.LocationSample{Timestamp: base.Add(time.Duration(i) * time.Hour)})
	}

	for _, n := range []int{0, 1, 5, 100, 1 << 16} {
		got := scorer.Assess(models.SafetyInput{Timestamp: at(2, 0), RecentAlertCount: n, History: history})
		if got.Score < 0 || got.Score > 100 {
			t.Fatalf("Assess(alerts=%d) score=%d out of [0,100]", n, got.Score)
		}
		if got.Score != 0 {
			t.Fatalf("Assess(alerts=%d) score=%d want clamp to 0", n, got.Score)
		}
	}
}

func TestSafetyScorerDeterministic(t *testing.T) {
	t.Parallel()

	zi := NewZoneIndex()
	_ = zi.LoadZones([]models.Geofence{squareZone("z", models.RiskMedium, 28, 77, 29, 78)})
	scorer := NewSafetyScorer(zi, SafetyScorerConfig{})

	userID := primitive.NewObjectID()
	history := []models.LocationSample{
		{UserID: userID, Coordinate: models.Coordinate{Latitude: 28.5, Longitude: 77.5}, Timestamp: at(10, 0)},
		{UserID: userID, Coordinate: models.Coordinate{Latitude: 28.5, Longitude: 77.5}, Timestamp: at(11, 0)},
	}
	in := models.SafetyInput{
		Coordinate:       models.Coordinate{Latitude: 28.5, Longitude: 77.5},
		Timestamp:        at(22, 30),
		RecentAlertCount: 2,
		History:          history,
	}

	first := scorer.Assess(in)
	for i := 0; i < 20; i++ {
		if got := scorer.Assess(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("Assess not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestSafetyScorerInactivity(t *testing.T) {
	t.Parallel()

	zi := NewZoneIndex()
	_ = zi.LoadZones([]models.Geofence{
		squareZone("high", models.RiskHigh, 10, 10, 11, 11),
		squareZone("medium", models.RiskMedium, 20, 20, 21, 21),
	})
	scorer := NewSafetyScorer(zi, SafetyScorerConfig{})

	highPt := models.Coordinate{Latitude: 10.5, Longitude: 10.5}
	medPt := models.Coordinate{Latitude: 20.5, Longitude: 20.5}
	lowPt := models.Coordinate{Latitude: 0, Longitude: 0}

	cases := []struct {
		name    string
		history []models.LocationSample
		want    int
	}{
		{"no history", nil, 100},
		{"single sample", []models.LocationSample{{Coordinate: highPt, Timestamp: at(9, 0)}}, 100},
		{"short gap", []models.LocationSample{{Coordinate: lowPt, Timestamp: at(9, 0)}, {Coordinate: highPt, Timestamp: at(9, 30)}}, 100},
		{"long gap into high", []models.LocationSample{{Coordinate: lowPt, Timestamp: at(9, 0)}, {Coordinate: highPt, Timestamp: at(9, 31)}}, 90},
		{"long gap into medium", []models.LocationSample{{Coordinate: lowPt, Timestamp: at(9, 0)}, {Coordinate: medPt, Timestamp: at(10, 0)}}, 94},
		{"long gap into low", []models.LocationSample{{Coordinate: highPt, Timestamp: at(9, 0)}, {Coordinate: lowPt, Timestamp: at(10, 0)}}, 97},
		{
			"unsorted history with two gaps",
			[]models.LocationSample{
				{Coordinate: medPt, Timestamp: at(11, 0)},
				{Coordinate: lowPt, Timestamp: at(9, 0)},
				{Coordinate: highPt, Timestamp: at(10, 0)},
			},
			84,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := scorer.Assess(models.SafetyInput{Coordinate: lowPt, Timestamp: at(12, 0), History: tc.history})
			if got.Score != tc.want {
				t.Fatalf("Score=%d want %d (factors %v)", got.Score, tc.want, got.Factors)
			}
			if (tc.want < 100) != got.HasFactor(models.FactorInactivity) {
				t.Fatalf("inactivity factor mismatch: %v", got.Factors)
			}
		})
	}
}

func TestSafetyScorerDoesNotReorderHistory(t *testing.T) {
	t.Parallel()

	scorer := NewSafetyScorer(staticZones{}, SafetyScorerConfig{})
	history := []models.LocationSample{
		{Timestamp: at(11, 0)},
		{Timestamp: at(9, 0)},
	}
	scorer.Assess(models.SafetyInput{Timestamp: at(12, 0), History: history})
	if !history[0].Timestamp.Equal(at(11, 0)) {
		t.Fatalf("Assess reordered caller history")
	}
}

func TestSafetyScorerLocalTime(t *testing.T) {
	t.Parallel()

	kolkata := time.FixedZone("IST", 5*3600+1800)
	scorer := NewSafetyScorer(staticZones{}, SafetyScorerConfig{Location: kolkata})

	// 17:00 UTC is 22:30 in IST
	got := scorer.Assess(models.SafetyInput{Timestamp: time.Date(2024, 3, 15, 17, 0, 0, 0, time.UTC)})
	if !got.HasFactor(models.FactorNightTime) {
		t.Fatalf("expected night_time in configured zone, got %v", got.Factors)
	}
}

func TestSafetyScenarioNightHighRiskWithAlerts(t *testing.T) {
	t.Parallel()

	zi := NewZoneIndex()
	center := models.Coordinate{Latitude: 28.61, Longitude: 77.21}
	if err := zi.LoadZones([]models.Geofence{circleZone("connaught", models.RiskHigh, center, 2000)}); err != nil {
		t.Fatalf("LoadZones: %v", err)
	}
	scorer := NewSafetyScorer(zi, SafetyScorerConfig{})

	got := scorer.Assess(models.SafetyInput{
		Coordinate:       center,
		Timestamp:        at(23, 0),
		RecentAlertCount: 2,
	})

	for _, want := range []models.FactorTag{models.FactorNightTime, models.FactorHighRiskArea, models.FactorRecentAlerts} {
		if !got.HasFactor(want) {
			t.Fatalf("factors %v missing %s", got.Factors, want)
		}
	}
	if got.Score > 40 {
		t.Fatalf("Score=%d want <= 40", got.Score)
	}
	if got.ZoneID == "" {
		t.Fatalf("ZoneID not set")
	}

	sos := scorer.AssessSOS(models.SafetyInput{Coordinate: center, Timestamp: at(23, 0), RecentAlertCount: 2})
	if !sos.HasFactor(models.FactorSOSAlert) || sos.Score != got.Score {
		t.Fatalf("AssessSOS=%+v want sos_alert tag and score %d", sos, got.Score)
	}
}
