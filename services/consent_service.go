package services

import (
	"context"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultConsentVersion = "1.0"

type ConsentStore interface {
	Append(ctx context.Context, record *models.ConsentRecord) error
	History(ctx context.Context, userID primitive.ObjectID) ([]models.ConsentRecord, error)
	Latest(ctx context.Context, userID primitive.ObjectID) (map[models.ConsentType]models.ConsentRecord, error)
}

// ConsentService keeps an append-only consent log. The newest record per
// type decides the current status; an expired grant counts as not granted.
type ConsentService struct {
	consentRepo ConsentStore
	validator   *utils.ValidationService
	now         func() time.Time
}

func NewConsentService(consentRepo ConsentStore) *ConsentService {
	return &ConsentService{
		consentRepo: consentRepo,
		validator:   utils.NewValidationService(),
		now:         time.Now,
	}
}

func (cs *ConsentService) RecordConsent(ctx context.Context, userID, ipAddress string, req models.RecordConsentRequest) (*models.ConsentRecord, error) {
	if err := cs.validator.Validate(req); err != nil {
		return nil, err
	}

	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return nil, err
	}

	now := cs.now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, utils.NewValidationError("Consent expiry must be in the future")
	}

	version := req.Version
	if version == "" {
		version = defaultConsentVersion
	}

	record := &models.ConsentRecord{
		UserID:    userObjectID,
		Type:      req.Type,
		Granted:   req.Granted,
		Purpose:   req.Purpose,
		Version:   version,
		IPAddress: ipAddress,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: now,
	}
	if err := cs.consentRepo.Append(ctx, record); err != nil {
		return nil, utils.NewDatabaseError("record consent", err)
	}

	logrus.WithFields(logrus.Fields{
		"userId":  userID,
		"type":    req.Type,
		"granted": req.Granted,
	}).Info("Consent recorded")
	return record, nil
}

// RevokeConsent appends a withdrawal for consentType.
func (cs *ConsentService) RevokeConsent(ctx context.Context, userID, ipAddress string, consentType models.ConsentType) (*models.ConsentRecord, error) {
	return cs.RecordConsent(ctx, userID, ipAddress, models.RecordConsentRequest{
		Type:    consentType,
		Granted: false,
		Purpose: "revoked by user",
	})
}

// GetStatus reports every known consent type, false unless the newest record
// is an unexpired grant.
func (cs *ConsentService) GetStatus(ctx context.Context, userID string) (models.ConsentStatus, error) {
	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return nil, err
	}

	latest, err := cs.consentRepo.Latest(ctx, userObjectID)
	if err != nil {
		return nil, utils.NewDatabaseError("consent status", err)
	}

	now := cs.now()
	status := make(models.ConsentStatus, len(models.ConsentTypes))
	for _, t := range models.ConsentTypes {
		record, ok := latest[t]
		status[t] = ok && record.Effective(now)
	}
	return status, nil
}

func (cs *ConsentService) HasConsent(ctx context.Context, userID string, consentType models.ConsentType) (bool, error) {
	status, err := cs.GetStatus(ctx, userID)
	if err != nil {
		return false, err
	}
	return status[consentType], nil
}

func (cs *ConsentService) GetHistory(ctx context.Context, userID string) ([]models.ConsentRecord, error) {
	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return nil, err
	}

	records, err := cs.consentRepo.History(ctx, userObjectID)
	if err != nil {
		return nil, utils.NewDatabaseError("consent history", err)
	}
	if records == nil {
		records = []models.ConsentRecord{}
	}
	return records, nil
}
