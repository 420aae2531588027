package repositories

import (
	"context"
	"errors"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LocationRepository struct {
	collection *mongo.Collection
}

func NewLocationRepository(db *mongo.Database) *LocationRepository {
	return &LocationRepository{
		collection: db.Collection("locations"),
	}
}

// ==================== BASIC LOCATION METHODS ====================

func (lr *LocationRepository) Save(ctx context.Context, sample *models.LocationSample) error {
	sample.ID = primitive.NewObjectID()
	sample.CreatedAt = time.Now()
	sample.Point = models.NewGeoPoint(sample.Coordinate)

	_, err := lr.collection.InsertOne(ctx, sample)
	return err
}

// RecentSamples returns samples at or after since, oldest first.
func (lr *LocationRepository) RecentSamples(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]models.LocationSample, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(2000)

	cursor, err := lr.collection.Find(ctx, bson.M{
		"userId":    userID,
		"timestamp": bson.M{"$gte": since},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	samples := []models.LocationSample{}
	err = cursor.All(ctx, &samples)
	return samples, err
}

// Latest returns the newest sample for the user, or nil when there is none.
func (lr *LocationRepository) Latest(ctx context.Context, userID primitive.ObjectID) (*models.LocationSample, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	var sample models.LocationSample
	err := lr.collection.FindOne(ctx, bson.M{"userId": userID}, opts).Decode(&sample)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &sample, nil
}

// History returns the newest samples first, bounded by limit.
func (lr *LocationRepository) History(ctx context.Context, userID primitive.ObjectID, since time.Time, limit int) ([]models.LocationSample, error) {
	filter := bson.M{"userId": userID}
	if !since.IsZero() {
		filter["timestamp"] = bson.M{"$gte": since}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := lr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	samples := []models.LocationSample{}
	err = cursor.All(ctx, &samples)
	return samples, err
}

// InactiveSince lists users whose newest sample is older than cutoff but
// newer than floor, so a user is only flagged once per quiet period.
func (lr *LocationRepository) InactiveSince(ctx context.Context, floor, cutoff time.Time) ([]models.LocationSample, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"timestamp": bson.M{"$gte": floor}}}},
		{{Key: "$sort", Value: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}}}},
		{{Key: "$group", Value: bson.M{"_id": "$userId", "latest": bson.M{"$first": "$$ROOT"}}}},
		{{Key: "$match", Value: bson.M{"latest.timestamp": bson.M{"$lt": cutoff}}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$latest"}}},
	}

	cursor, err := lr.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	samples := []models.LocationSample{}
	err = cursor.All(ctx, &samples)
	return samples, err
}

func (lr *LocationRepository) ClearHistory(ctx context.Context, userID string) error {
	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return utils.NewValidationError("Invalid user ID")
	}

	_, err = lr.collection.DeleteMany(ctx, bson.M{"userId": objectID})
	return err
}

func (lr *LocationRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := lr.collection.DeleteMany(ctx, bson.M{
		"timestamp": bson.M{"$lt": olderThan},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
