package services

import (
	"sort"
	"time"

	"touristsafety/models"
)

// Scoring constants. The five-band scale below is the only one used
// anywhere in the service.
const (
	baseSafetyScore = 100

	highRiskZonePenalty   = 25
	mediumRiskZonePenalty = 15
	nightPenalty          = 15
	perAlertPenalty       = 10

	inactivityHighPenalty   = 10
	inactivityMediumPenalty = 6
	inactivityLowPenalty    = 3

	nightStartHour = 20 // hours after this are night
	nightEndHour   = 6  // hours before this are night

	DefaultRecentAlertCap      = 5
	DefaultInactivityThreshold = 30 * time.Minute
)

type SafetyScorerConfig struct {
	Location            *time.Location
	InactivityThreshold time.Duration
	RecentAlertCap      int
}

// SafetyScorer folds zone risk, time of day, alert history and movement
// gaps into a 0-100 score. It holds no mutable state.
type SafetyScorer struct {
	zones               ZoneClassifier
	location            *time.Location
	inactivityThreshold time.Duration
	alertCap            int
}

func NewSafetyScorer(zones ZoneClassifier, cfg SafetyScorerConfig) *SafetyScorer {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.InactivityThreshold <= 0 {
		cfg.InactivityThreshold = DefaultInactivityThreshold
	}
	if cfg.RecentAlertCap <= 0 {
		cfg.RecentAlertCap = DefaultRecentAlertCap
	}
	return &SafetyScorer{
		zones:               zones,
		location:            cfg.Location,
		inactivityThreshold: cfg.InactivityThreshold,
		alertCap:            cfg.RecentAlertCap,
	}
}

// Assess scores a single position. History is optional; when present,
// gaps between consecutive samples add inactivity penalties.
func (ss *SafetyScorer) Assess(in models.SafetyInput) models.SafetyAssessment {
	score := baseSafetyScore
	var factors []models.FactorTag
	var zoneID string

	if match := ss.zones.Classify(in.Coordinate); match != nil {
		zoneID = match.ZoneID
		switch match.RiskLevel {
		case models.RiskHigh:
			score -= highRiskZonePenalty
			factors = append(factors, models.FactorHighRiskArea)
		case models.RiskMedium:
			score -= mediumRiskZonePenalty
			factors = append(factors, models.FactorMediumRiskArea)
		}
	}

	if ss.isNight(in.Timestamp) {
		score -= nightPenalty
		factors = append(factors, models.FactorNightTime)
	}

	if in.RecentAlertCount > 0 {
		n := in.RecentAlertCount
		if n > ss.alertCap {
			n = ss.alertCap
		}
		score -= perAlertPenalty * n
		factors = append(factors, models.FactorRecentAlerts)
	}

	if penalty := ss.inactivityPenalty(in.History); penalty > 0 {
		score -= penalty
		factors = append(factors, models.FactorInactivity)
	}

	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	if factors == nil {
		factors = []models.FactorTag{}
	}

	return models.SafetyAssessment{
		Score:      score,
		RiskLevel:  LevelForScore(score),
		Factors:    factors,
		ZoneID:     zoneID,
		AssessedAt: in.Timestamp,
	}
}

// AssessSOS is Assess for a position tied to an SOS alert; it tags the
// result with sos_alert without changing the score.
func (ss *SafetyScorer) AssessSOS(in models.SafetyInput) models.SafetyAssessment {
	a := ss.Assess(in)
	a.Factors = append([]models.FactorTag{models.FactorSOSAlert}, a.Factors...)
	return a
}

func (ss *SafetyScorer) isNight(t time.Time) bool {
	hour := t.In(ss.location).Hour()
	return hour < nightEndHour || hour > nightStartHour
}

func (ss *SafetyScorer) inactivityPenalty(history []models.LocationSample) int {
	if len(history) < 2 {
		return 0
	}

	samples := make([]models.LocationSample, len(history))
	copy(samples, history)
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})

	penalty := 0
	for i := 1; i < len(samples); i++ {
		if samples[i].Timestamp.Sub(samples[i-1].Timestamp) <= ss.inactivityThreshold {
			continue
		}

		risk := models.RiskLow
		if match := ss.zones.Classify(samples[i].Coordinate); match != nil {
			risk = match.RiskLevel
		}
		switch risk {
		case models.RiskHigh:
			penalty += inactivityHighPenalty
		case models.RiskMedium:
			penalty += inactivityMediumPenalty
		default:
			penalty += inactivityLowPenalty
		}
	}
	return penalty
}

// LevelForScore maps a clamped score onto the five-band scale.
func LevelForScore(score int) models.SafetyLevel {
	switch {
	case score >= 80:
		return models.SafetyVeryLow
	case score >= 60:
		return models.SafetyLow
	case score >= 40:
		return models.SafetyMedium
	case score >= 20:
		return models.SafetyHigh
	default:
		return models.SafetyVeryHigh
	}
}
