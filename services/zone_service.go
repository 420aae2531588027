package services

import (
	"context"
	"strings"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/sirupsen/logrus"
)

// ZoneStore is the durable geofence collection.
type ZoneStore interface {
	Create(ctx context.Context, zone *models.Geofence) error
	GetByID(ctx context.Context, id string) (*models.Geofence, error)
	Replace(ctx context.Context, zone *models.Geofence) error
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]models.Geofence, error)
	List(ctx context.Context, riskLevel models.RiskLevel, page, pageSize int) ([]models.Geofence, int64, error)
	LastModified(ctx context.Context) (time.Time, error)
}

// ZoneService manages geofences and keeps the in-memory ZoneIndex in step
// with the store. Every mutation triggers a reload; a failed reload is
// logged and left to the periodic reload worker.
type ZoneService struct {
	zoneRepo  ZoneStore
	index     *ZoneIndex
	validator *utils.ValidationService
}

func NewZoneService(zoneRepo ZoneStore, index *ZoneIndex) *ZoneService {
	return &ZoneService{
		zoneRepo:  zoneRepo,
		index:     index,
		validator: utils.NewValidationService(),
	}
}

func (zs *ZoneService) CreateZone(ctx context.Context, adminID string, req models.CreateZoneRequest) (*models.Geofence, error) {
	if err := zs.validator.Validate(req); err != nil {
		return nil, err
	}

	zone := &models.Geofence{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Kind:         req.Kind,
		ZoneType:     req.ZoneType,
		RiskLevel:    req.RiskLevel,
		Vertices:     req.Vertices,
		Center:       req.Center,
		RadiusMeters: req.RadiusMeters,
		IsActive:     true,
	}
	normalizeShape(zone)

	if err := utils.ValidateGeofence(*zone); err != nil {
		return nil, utils.NewInvalidGeometryError(shapeProblem(*zone))
	}

	if adminID != "" {
		createdBy, err := utils.ParseObjectID(adminID, "user ID")
		if err != nil {
			return nil, err
		}
		zone.CreatedBy = createdBy
	}

	if err := zs.zoneRepo.Create(ctx, zone); err != nil {
		return nil, utils.NewDatabaseError("create zone", err)
	}

	logrus.WithFields(logrus.Fields{
		"zoneId":    zone.ID.Hex(),
		"riskLevel": zone.RiskLevel,
	}).Info("Zone created")

	zs.reloadAfterChange(ctx)
	return zone, nil
}

func (zs *ZoneService) UpdateZone(ctx context.Context, zoneID string, req models.UpdateZoneRequest) (*models.Geofence, error) {
	if err := zs.validator.Validate(req); err != nil {
		return nil, err
	}

	zone, err := zs.zoneRepo.GetByID(ctx, zoneID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		zone.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		zone.Description = *req.Description
	}
	if req.RiskLevel != nil {
		zone.RiskLevel = *req.RiskLevel
	}
	if req.ZoneType != nil {
		zone.ZoneType = *req.ZoneType
	}
	if req.Vertices != nil {
		zone.Vertices = req.Vertices
	}
	if req.Center != nil {
		zone.Center = req.Center
	}
	if req.RadiusMeters != nil {
		zone.RadiusMeters = *req.RadiusMeters
	}
	if req.IsActive != nil {
		zone.IsActive = *req.IsActive
	}
	normalizeShape(zone)

	if err := utils.ValidateGeofence(*zone); err != nil {
		return nil, utils.NewInvalidGeometryError(shapeProblem(*zone))
	}

	if err := zs.zoneRepo.Replace(ctx, zone); err != nil {
		return nil, err
	}

	zs.reloadAfterChange(ctx)
	return zone, nil
}

func (zs *ZoneService) DeleteZone(ctx context.Context, zoneID string) error {
	if err := zs.zoneRepo.Delete(ctx, zoneID); err != nil {
		return err
	}

	logrus.WithField("zoneId", zoneID).Info("Zone deleted")
	zs.reloadAfterChange(ctx)
	return nil
}

func (zs *ZoneService) GetZone(ctx context.Context, zoneID string) (*models.Geofence, error) {
	return zs.zoneRepo.GetByID(ctx, zoneID)
}

func (zs *ZoneService) ListZones(ctx context.Context, riskLevel models.RiskLevel, page, pageSize int) ([]models.Geofence, int64, error) {
	if riskLevel != "" && !riskLevel.Valid() {
		return nil, 0, utils.NewValidationError("Invalid risk level")
	}
	zones, total, err := zs.zoneRepo.List(ctx, riskLevel, page, pageSize)
	if err != nil {
		return nil, 0, utils.NewDatabaseError("list zones", err)
	}
	return zones, total, nil
}

// Reload replaces the index with the active zones from the store. The
// index is left untouched when loading or validation fails.
func (zs *ZoneService) Reload(ctx context.Context) error {
	zones, err := zs.zoneRepo.ListActive(ctx)
	if err != nil {
		return utils.NewDatabaseError("list active zones", err)
	}
	if err := zs.index.LoadZones(zones); err != nil {
		return err
	}
	logrus.WithField("zones", len(zones)).Debug("Zone index reloaded")
	return nil
}

// LastModified exposes the store's newest zone change for the reload worker.
func (zs *ZoneService) LastModified(ctx context.Context) (time.Time, error) {
	return zs.zoneRepo.LastModified(ctx)
}

func (zs *ZoneService) ActiveCount() int {
	return zs.index.Len()
}

func (zs *ZoneService) reloadAfterChange(ctx context.Context) {
	if err := zs.Reload(ctx); err != nil {
		logrus.WithError(err).Error("Failed to reload zone index after change")
	}
}

// normalizeShape drops the fields that do not belong to the zone's kind.
func normalizeShape(zone *models.Geofence) {
	switch zone.Kind {
	case models.ZoneKindPolygon:
		zone.Center = nil
		zone.RadiusMeters = 0
	case models.ZoneKindCircle:
		zone.Vertices = nil
	}
}

func shapeProblem(zone models.Geofence) string {
	switch zone.Kind {
	case models.ZoneKindPolygon:
		return "polygon zones need at least 3 valid vertices"
	case models.ZoneKindCircle:
		return "circle zones need a valid center and a positive radius"
	}
	return "unknown zone kind " + string(zone.Kind)
}
