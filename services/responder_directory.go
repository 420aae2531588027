package services

import (
	"context"
	"sort"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	responderGeoKeyPrefix = "responders:geo:"
	responderNamesKey     = "responders:names"
)

// ResponderRegistry is the durable responder store.
type ResponderRegistry interface {
	Create(ctx context.Context, responder *models.Responder) error
	GetByID(ctx context.Context, id string) (*models.Responder, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Responder, error)
	UpdatePosition(ctx context.Context, id string, coordinate models.Coordinate, available *bool) (*models.Responder, error)
	ListAvailable(ctx context.Context) ([]models.Responder, error)
	Near(ctx context.Context, coordinate models.Coordinate, roles []models.ResponderRole, maxMeters float64, limit int) ([]models.ResponderRef, error)
}

// ResponderService keeps responders in Mongo and mirrors live positions
// into Redis GEO sets, one per role. Nearby reads Redis first and falls back
// to a Mongo 2dsphere query when Redis is unavailable or has no hits.
type ResponderService struct {
	registry     ResponderRegistry
	redis        *redis.Client
	radiusMeters float64
	limit        int
	validator    *utils.ValidationService
}

func NewResponderService(registry ResponderRegistry, redisClient *redis.Client, radiusMeters float64, limit int) *ResponderService {
	if radiusMeters <= 0 {
		radiusMeters = 5000
	}
	if limit <= 0 {
		limit = 5
	}
	return &ResponderService{
		registry:     registry,
		redis:        redisClient,
		radiusMeters: radiusMeters,
		limit:        limit,
		validator:    utils.NewValidationService(),
	}
}

func (rs *ResponderService) Create(ctx context.Context, req models.CreateResponderRequest) (*models.Responder, error) {
	if err := rs.validator.Validate(req); err != nil {
		return nil, err
	}

	responder := &models.Responder{
		Name:       req.Name,
		Role:       req.Role,
		Phone:      req.Phone,
		Email:      req.Email,
		Coordinate: models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude},
		Available:  true,
	}
	if req.UserID != "" {
		userID, err := utils.ParseObjectID(req.UserID, "user ID")
		if err != nil {
			return nil, err
		}
		responder.UserID = userID
	}

	if err := rs.registry.Create(ctx, responder); err != nil {
		return nil, utils.NewDatabaseError("create responder", err)
	}
	rs.mirror(ctx, responder)

	logrus.WithFields(logrus.Fields{
		"responderId": responder.ID.Hex(),
		"role":        responder.Role,
	}).Info("Responder registered")
	return responder, nil
}

// UpdatePosition moves a responder. Responder accounts may only move their
// own record; admins may move any.
func (rs *ResponderService) UpdatePosition(ctx context.Context, responderID, callerID, callerRole string, req models.UpdateResponderPositionRequest) (*models.Responder, error) {
	if err := rs.validator.Validate(req); err != nil {
		return nil, err
	}

	if callerRole != models.RoleAdmin {
		existing, err := rs.registry.GetByID(ctx, responderID)
		if err != nil {
			return nil, err
		}
		if existing.UserID.Hex() != callerID {
			return nil, utils.NewInsufficientPermissionsError()
		}
	}

	coordinate := models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	responder, err := rs.registry.UpdatePosition(ctx, responderID, coordinate, req.Available)
	if err != nil {
		return nil, err
	}
	rs.mirror(ctx, responder)
	return responder, nil
}

// ActingResponderID decides which responder an acknowledgement is recorded
// for. A responder account always acts as its own linked record and may not
// name another; admins must name one.
func (rs *ResponderService) ActingResponderID(ctx context.Context, callerID, callerRole, requested string) (string, error) {
	if callerRole == models.RoleAdmin {
		if requested == "" {
			return "", utils.NewValidationError("responderId is required")
		}
		return requested, nil
	}

	userID, err := utils.ParseObjectID(callerID, "user ID")
	if err != nil {
		return "", err
	}
	own, err := rs.registry.GetByUserID(ctx, userID)
	if err != nil {
		if utils.IsNotFound(err) {
			return "", utils.NewInsufficientPermissionsError()
		}
		return "", utils.NewDatabaseError("lookup responder", err)
	}
	if requested != "" && requested != own.ID.Hex() {
		return "", utils.NewInsufficientPermissionsError()
	}
	return own.ID.Hex(), nil
}

// Nearby implements ResponderDirectory.
func (rs *ResponderService) Nearby(ctx context.Context, coordinate models.Coordinate, roles []models.ResponderRole) ([]models.ResponderRef, error) {
	if rs.redis != nil {
		refs, err := rs.nearbyFromRedis(ctx, coordinate, roles)
		if err == nil && len(refs) > 0 {
			return refs, nil
		}
		if err != nil {
			logrus.WithError(err).Warn("Redis responder lookup failed, using Mongo")
		}
	}
	return rs.registry.Near(ctx, coordinate, roles, rs.radiusMeters, rs.limit)
}

func (rs *ResponderService) nearbyFromRedis(ctx context.Context, coordinate models.Coordinate, roles []models.ResponderRole) ([]models.ResponderRef, error) {
	var refs []models.ResponderRef
	for _, role := range roles {
		locations, err := rs.redis.GeoSearchLocation(ctx, responderGeoKeyPrefix+string(role), &redis.GeoSearchLocationQuery{
			GeoSearchQuery: redis.GeoSearchQuery{
				Longitude:  coordinate.Longitude,
				Latitude:   coordinate.Latitude,
				Radius:     rs.radiusMeters,
				RadiusUnit: "m",
				Sort:       "ASC",
				Count:      rs.limit,
			},
			WithDist: true,
		}).Result()
		if err != nil {
			return nil, err
		}
		for _, loc := range locations {
			refs = append(refs, models.ResponderRef{
				ResponderID:    loc.Name,
				Role:           role,
				DistanceMeters: loc.Dist,
			})
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ResponderID
	}
	names, err := rs.redis.HMGet(ctx, responderNamesKey, ids...).Result()
	if err == nil {
		for i, name := range names {
			if s, ok := name.(string); ok {
				refs[i].Name = s
			}
		}
	}

	sortRefsByDistance(refs)
	if len(refs) > rs.limit {
		refs = refs[:rs.limit]
	}
	return refs, nil
}

// mirror writes the responder into the per-role GEO set, or removes it when
// unavailable. Failures are logged; Mongo remains the source of truth.
func (rs *ResponderService) mirror(ctx context.Context, responder *models.Responder) {
	if rs.redis == nil {
		return
	}

	id := responder.ID.Hex()
	key := responderGeoKeyPrefix + string(responder.Role)

	pipe := rs.redis.TxPipeline()
	if responder.Available {
		pipe.GeoAdd(ctx, key, &redis.GeoLocation{
			Name:      id,
			Longitude: responder.Coordinate.Longitude,
			Latitude:  responder.Coordinate.Latitude,
		})
		pipe.HSet(ctx, responderNamesKey, id, responder.Name)
	} else {
		pipe.ZRem(ctx, key, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).WithField("responderId", id).Warn("Failed to mirror responder position to Redis")
	}
}

// Warm loads every available responder into Redis. Called at startup.
func (rs *ResponderService) Warm(ctx context.Context) error {
	if rs.redis == nil {
		return nil
	}

	start := time.Now()
	responders, err := rs.registry.ListAvailable(ctx)
	if err != nil {
		return err
	}
	for i := range responders {
		rs.mirror(ctx, &responders[i])
	}

	logrus.WithFields(logrus.Fields{
		"count":    len(responders),
		"duration": time.Since(start),
	}).Info("Responder geo cache warmed")
	return nil
}

func sortRefsByDistance(refs []models.ResponderRef) {
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].DistanceMeters < refs[j].DistanceMeters
	})
}
