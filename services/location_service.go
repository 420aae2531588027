package services

import (
	"context"
	"fmt"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultSpeedAnomalyThreshold = 20.0 // m/s
	maxClockSkew                 = 2 * time.Minute
)

// LocationTracker is the location persistence Ping and History use.
type LocationTracker interface {
	LocationStore
	Latest(ctx context.Context, userID primitive.ObjectID) (*models.LocationSample, error)
	History(ctx context.Context, userID primitive.ObjectID, since time.Time, limit int) ([]models.LocationSample, error)
}

// AlertCounter counts a user's alerts in [from, to).
type AlertCounter interface {
	CountInRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time) (int64, error)
}

// AlertRaiser opens non-SOS alerts.
type AlertRaiser interface {
	CreateAlert(ctx context.Context, userID string, req models.CreateAlertRequest) (*models.Alert, error)
}

type LocationServiceConfig struct {
	HistoryWindow     time.Duration
	RecentAlertWindow time.Duration
	SpeedThreshold    float64
}

type LocationService struct {
	locationRepo LocationTracker
	alertCounter AlertCounter
	alerts       AlertRaiser
	zones        ZoneClassifier
	scorer       *SafetyScorer
	realtime     RealtimeBroadcaster
	validator    *utils.ValidationService
	cfg          LocationServiceConfig
	now          func() time.Time
}

func NewLocationService(
	locationRepo LocationTracker,
	alertCounter AlertCounter,
	alerts AlertRaiser,
	zones ZoneClassifier,
	scorer *SafetyScorer,
	realtime RealtimeBroadcaster,
	cfg LocationServiceConfig,
) *LocationService {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 6 * time.Hour
	}
	if cfg.RecentAlertWindow <= 0 {
		cfg.RecentAlertWindow = 24 * time.Hour
	}
	if cfg.SpeedThreshold <= 0 {
		cfg.SpeedThreshold = DefaultSpeedAnomalyThreshold
	}
	return &LocationService{
		locationRepo: locationRepo,
		alertCounter: alertCounter,
		alerts:       alerts,
		zones:        zones,
		scorer:       scorer,
		realtime:     realtime,
		validator:    utils.NewValidationService(),
		cfg:          cfg,
		now:          time.Now,
	}
}

// Ping stores a position report, classifies it and returns a fresh safety
// assessment. Entering a high-risk zone raises a geofence alert once per
// entry; an implausible jump from the previous sample raises a system alert.
// Alert failures are logged and never fail the ping.
func (ls *LocationService) Ping(ctx context.Context, userID string, req models.PingRequest) (*models.PingResponse, error) {
	if err := ls.validator.Validate(req); err != nil {
		return nil, err
	}

	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return nil, err
	}

	coordinate := models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	if !utils.IsValidCoordinate(coordinate) {
		return nil, utils.NewValidationError("Coordinate out of range")
	}

	now := ls.now()
	timestamp := now
	if req.Timestamp != nil {
		if req.Timestamp.After(now.Add(maxClockSkew)) {
			return nil, utils.NewValidationError("Timestamp is in the future")
		}
		timestamp = *req.Timestamp
	}

	source := req.Source
	if source == "" {
		source = models.SourcePing
	}

	log := logrus.WithField("userId", userID)

	previous, err := ls.locationRepo.Latest(ctx, userObjectID)
	if err != nil {
		log.WithError(err).Warn("Could not load previous location")
		previous = nil
	}

	sample := models.LocationSample{
		UserID:     userObjectID,
		Coordinate: coordinate,
		Accuracy:   req.Accuracy,
		Speed:      req.Speed,
		Source:     source,
		Timestamp:  timestamp,
	}
	match := ls.zones.Classify(coordinate)
	if match != nil {
		sample.ZoneID = match.ZoneID
		sample.RiskLevel = match.RiskLevel
	}

	if err := ls.locationRepo.Save(ctx, &sample); err != nil {
		return nil, utils.NewDatabaseError("save location", err)
	}

	assessment := ls.assess(ctx, userObjectID, coordinate, timestamp, log)

	response := &models.PingResponse{
		Sample:     sample,
		Zone:       match,
		Assessment: assessment,
	}

	if enteredHighRiskZone(previous, match) {
		ls.warnZoneEntry(userID, match, coordinate, timestamp)
		if alert := ls.raise(ctx, userID, models.CreateAlertRequest{
			Type:      models.AlertTypeGeofence,
			Severity:  models.SeverityHigh,
			Latitude:  coordinate.Latitude,
			Longitude: coordinate.Longitude,
			Message:   fmt.Sprintf("Entered high-risk zone %s", match.ZoneName),
		}, log); alert != nil {
			response.AlertIDs = append(response.AlertIDs, alert.ID.Hex())
		}
	}

	if previous != nil {
		speed := utils.SpeedBetween(previous.Coordinate, previous.Timestamp, coordinate, timestamp)
		if speed > ls.cfg.SpeedThreshold {
			log.WithField("speed", speed).Warn("Anomalous movement detected")
			if alert := ls.raise(ctx, userID, models.CreateAlertRequest{
				Type:      models.AlertTypeSystem,
				Severity:  models.SeverityMedium,
				Latitude:  coordinate.Latitude,
				Longitude: coordinate.Longitude,
				Message:   fmt.Sprintf("Anomalous movement: %.1f m/s between consecutive reports", speed),
			}, log); alert != nil {
				response.AlertIDs = append(response.AlertIDs, alert.ID.Hex())
			}
		}
	}

	return response, nil
}

// enteredHighRiskZone is true when the current sample is in a high-risk zone
// the previous sample was not in.
func enteredHighRiskZone(previous *models.LocationSample, match *models.ZoneMatch) bool {
	if match == nil || match.RiskLevel != models.RiskHigh {
		return false
	}
	return previous == nil || previous.ZoneID != match.ZoneID
}

func (ls *LocationService) raise(ctx context.Context, userID string, req models.CreateAlertRequest, log *logrus.Entry) *models.Alert {
	if ls.alerts == nil {
		return nil
	}
	alert, err := ls.alerts.CreateAlert(ctx, userID, req)
	if err != nil {
		log.WithError(err).WithField("alertType", req.Type).Error("Failed to raise location alert")
		return nil
	}
	return alert
}

func (ls *LocationService) warnZoneEntry(userID string, match *models.ZoneMatch, coordinate models.Coordinate, at time.Time) {
	if ls.realtime == nil {
		return
	}
	ls.realtime.SendToUser(userID, models.WSMessage{
		Type: models.WSTypeZoneWarning,
		Data: map[string]interface{}{
			"zone":       match,
			"coordinate": coordinate,
		},
		UserID:    userID,
		Timestamp: at,
	})
}

func (ls *LocationService) assess(ctx context.Context, userID primitive.ObjectID, coordinate models.Coordinate, at time.Time, log *logrus.Entry) models.SafetyAssessment {
	input := models.SafetyInput{
		Coordinate: coordinate,
		Timestamp:  at,
	}

	history, err := ls.locationRepo.RecentSamples(ctx, userID, at.Add(-ls.cfg.HistoryWindow))
	if err != nil {
		log.WithError(err).Warn("Could not load location history, assessing without it")
	} else {
		input.History = history
	}

	if ls.alertCounter != nil {
		count, err := ls.alertCounter.CountInRange(ctx, userID, at.Add(-ls.cfg.RecentAlertWindow), at)
		if err != nil {
			log.WithError(err).Warn("Could not count recent alerts")
		} else {
			input.RecentAlertCount = int(count)
		}
	}

	return ls.scorer.Assess(input)
}

// History returns samples newest first. Since defaults to 24 hours ago and
// limit to 100.
func (ls *LocationService) History(ctx context.Context, userID string, query models.LocationHistoryQuery) ([]models.LocationSample, error) {
	if err := ls.validator.Validate(query); err != nil {
		return nil, err
	}

	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return nil, err
	}

	since := query.Since
	if since.IsZero() {
		since = ls.now().Add(-24 * time.Hour)
	}
	limit := query.Limit
	if limit == 0 {
		limit = 100
	}

	samples, err := ls.locationRepo.History(ctx, userObjectID, since, limit)
	if err != nil {
		return nil, utils.NewDatabaseError("location history", err)
	}
	if samples == nil {
		samples = []models.LocationSample{}
	}
	return samples, nil
}

func (ls *LocationService) CheckZone(req models.CheckZoneRequest) (*models.CheckZoneResponse, error) {
	if err := ls.validator.Validate(req); err != nil {
		return nil, err
	}

	match := ls.zones.Classify(models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude})
	return &models.CheckZoneResponse{
		InZone: match != nil,
		Zone:   match,
	}, nil
}

// SafetyScore assesses the given coordinate, or the user's last reported
// position when none is given.
func (ls *LocationService) SafetyScore(ctx context.Context, userID string, query models.SafetyScoreQuery) (*models.SafetyAssessment, error) {
	if err := ls.validator.Validate(query); err != nil {
		return nil, err
	}
	if (query.Latitude == nil) != (query.Longitude == nil) {
		return nil, utils.NewValidationError("Latitude and longitude must be given together")
	}

	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return nil, err
	}

	var coordinate models.Coordinate
	if query.Latitude != nil {
		coordinate = models.Coordinate{Latitude: *query.Latitude, Longitude: *query.Longitude}
	} else {
		latest, err := ls.locationRepo.Latest(ctx, userObjectID)
		if err != nil {
			return nil, utils.NewDatabaseError("latest location", err)
		}
		if latest == nil {
			return nil, utils.NewNotFoundError("Location")
		}
		coordinate = latest.Coordinate
	}

	assessment := ls.assess(ctx, userObjectID, coordinate, ls.now(), logrus.WithField("userId", userID))
	return &assessment, nil
}
