package repositories

import (
	"context"
	"errors"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ZoneRepository struct {
	collection *mongo.Collection
}

func NewZoneRepository(db *mongo.Database) *ZoneRepository {
	return &ZoneRepository{
		collection: db.Collection("zones"),
	}
}

func (zr *ZoneRepository) Create(ctx context.Context, zone *models.Geofence) error {
	zone.ID = primitive.NewObjectID()
	zone.CreatedAt = time.Now()
	zone.UpdatedAt = time.Now()

	_, err := zr.collection.InsertOne(ctx, zone)
	if err != nil {
		logrus.Errorf("Failed to create zone: %v", err)
	}
	return err
}

func (zr *ZoneRepository) GetByID(ctx context.Context, id string) (*models.Geofence, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.NewValidationError("Invalid zone ID")
	}

	var zone models.Geofence
	err = zr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&zone)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewZoneNotFoundError()
		}
		return nil, err
	}
	return &zone, nil
}

func (zr *ZoneRepository) Replace(ctx context.Context, zone *models.Geofence) error {
	zone.UpdatedAt = time.Now()

	result, err := zr.collection.ReplaceOne(ctx, bson.M{"_id": zone.ID}, zone)
	if err != nil {
		logrus.Errorf("Failed to update zone: %v", err)
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewZoneNotFoundError()
	}
	return nil
}

func (zr *ZoneRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.NewValidationError("Invalid zone ID")
	}

	result, err := zr.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return utils.NewZoneNotFoundError()
	}
	return nil
}

// ListActive returns active zones in creation order. The order is the
// classification priority of the zone index.
func (zr *ZoneRepository) ListActive(ctx context.Context) ([]models.Geofence, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := zr.collection.Find(ctx, bson.M{"isActive": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	zones := []models.Geofence{}
	err = cursor.All(ctx, &zones)
	return zones, err
}

func (zr *ZoneRepository) List(ctx context.Context, riskLevel models.RiskLevel, page, pageSize int) ([]models.Geofence, int64, error) {
	filter := bson.M{}
	if riskLevel != "" {
		filter["riskLevel"] = riskLevel
	}

	total, err := zr.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := zr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	zones := []models.Geofence{}
	err = cursor.All(ctx, &zones)
	return zones, total, err
}

// LastModified returns the newest updatedAt across all zones. The reload
// worker uses it to skip unchanged sets.
func (zr *ZoneRepository) LastModified(ctx context.Context) (time.Time, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetProjection(bson.M{"updatedAt": 1})

	var zone models.Geofence
	err := zr.collection.FindOne(ctx, bson.M{}, opts).Decode(&zone)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return zone.UpdatedAt, nil
}
