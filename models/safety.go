package models

import "time"

// SafetyLevel is the five-band risk reading derived from a score.
type SafetyLevel string

const (
	SafetyVeryLow  SafetyLevel = "very_low"
	SafetyLow      SafetyLevel = "low"
	SafetyMedium   SafetyLevel = "medium"
	SafetyHigh     SafetyLevel = "high"
	SafetyVeryHigh SafetyLevel = "very_high"
)

type FactorTag string

const (
	FactorNightTime      FactorTag = "night_time"
	FactorHighRiskArea   FactorTag = "high_risk_area"
	FactorMediumRiskArea FactorTag = "medium_risk_area"
	FactorSOSAlert       FactorTag = "sos_alert"
	FactorInactivity     FactorTag = "inactivity"
	FactorRecentAlerts   FactorTag = "recent_alerts"
)

// SafetyAssessment is computed on demand and never mutated afterwards.
type SafetyAssessment struct {
	Score      int         `json:"score" bson:"score"`
	RiskLevel  SafetyLevel `json:"riskLevel" bson:"riskLevel"`
	Factors    []FactorTag `json:"factors" bson:"factors"`
	ZoneID     string      `json:"zoneId,omitempty" bson:"zoneId,omitempty"`
	AssessedAt time.Time   `json:"assessedAt" bson:"assessedAt"`
}

func (a SafetyAssessment) HasFactor(tag FactorTag) bool {
	for _, f := range a.Factors {
		if f == tag {
			return true
		}
	}
	return false
}

// SafetyInput bundles everything the scorer reads.
type SafetyInput struct {
	Coordinate       Coordinate
	Timestamp        time.Time
	RecentAlertCount int
	History          []LocationSample
}

type SafetyScoreQuery struct {
	Latitude  *float64 `form:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `form:"longitude" validate:"omitempty,longitude"`
}
