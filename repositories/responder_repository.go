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

type ResponderRepository struct {
	collection *mongo.Collection
}

func NewResponderRepository(db *mongo.Database) *ResponderRepository {
	return &ResponderRepository{
		collection: db.Collection("responders"),
	}
}

func (rr *ResponderRepository) Create(ctx context.Context, responder *models.Responder) error {
	responder.ID = primitive.NewObjectID()
	responder.CreatedAt = time.Now()
	responder.UpdatedAt = time.Now()
	responder.Point = models.NewGeoPoint(responder.Coordinate)

	_, err := rr.collection.InsertOne(ctx, responder)
	if err != nil {
		logrus.Errorf("Failed to create responder: %v", err)
	}
	return err
}

func (rr *ResponderRepository) GetByID(ctx context.Context, id string) (*models.Responder, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.NewValidationError("Invalid responder ID")
	}

	var responder models.Responder
	err = rr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&responder)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewNotFoundError("Responder")
		}
		return nil, err
	}
	return &responder, nil
}

// GetByUserID finds the responder record linked to a login account.
func (rr *ResponderRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Responder, error) {
	var responder models.Responder
	err := rr.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&responder)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewNotFoundError("Responder")
		}
		return nil, err
	}
	return &responder, nil
}

func (rr *ResponderRepository) UpdatePosition(ctx context.Context, id string, coordinate models.Coordinate, available *bool) (*models.Responder, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.NewValidationError("Invalid responder ID")
	}

	set := bson.M{
		"coordinate": coordinate,
		"point":      models.NewGeoPoint(coordinate),
		"updatedAt":  time.Now(),
	}
	if available != nil {
		set["available"] = *available
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var responder models.Responder
	err = rr.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": set}, opts).Decode(&responder)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewNotFoundError("Responder")
		}
		return nil, err
	}
	return &responder, nil
}

// ListAvailable returns every available responder. Used to warm the geo cache.
func (rr *ResponderRepository) ListAvailable(ctx context.Context) ([]models.Responder, error) {
	cursor, err := rr.collection.Find(ctx, bson.M{"available": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	responders := []models.Responder{}
	err = cursor.All(ctx, &responders)
	return responders, err
}

// Near runs a 2dsphere $geoNear query for available responders with one of
// the given roles within maxMeters, closest first.
func (rr *ResponderRepository) Near(ctx context.Context, coordinate models.Coordinate, roles []models.ResponderRole, maxMeters float64, limit int) ([]models.ResponderRef, error) {
	query := bson.M{"available": true}
	if len(roles) > 0 {
		query["role"] = bson.M{"$in": roles}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.M{
			"near":          models.NewGeoPoint(coordinate),
			"distanceField": "distance",
			"maxDistance":   maxMeters,
			"query":         query,
			"spherical":     true,
			"key":           "point",
		}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := rr.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID       primitive.ObjectID   `bson:"_id"`
		Name     string               `bson:"name"`
		Role     models.ResponderRole `bson:"role"`
		Distance float64              `bson:"distance"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	refs := make([]models.ResponderRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, models.ResponderRef{
			ResponderID:    row.ID.Hex(),
			Name:           row.Name,
			Role:           row.Role,
			DistanceMeters: row.Distance,
		})
	}
	return refs, nil
}
