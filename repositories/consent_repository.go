package repositories

import (
	"context"
	"time"

	"touristsafety/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ConsentRepository struct {
	collection *mongo.Collection
}

func NewConsentRepository(db *mongo.Database) *ConsentRepository {
	return &ConsentRepository{
		collection: db.Collection("consents"),
	}
}

// Append stores a new decision. Existing records are never modified.
func (cr *ConsentRepository) Append(ctx context.Context, record *models.ConsentRecord) error {
	record.ID = primitive.NewObjectID()
	record.CreatedAt = time.Now()

	_, err := cr.collection.InsertOne(ctx, record)
	return err
}

func (cr *ConsentRepository) History(ctx context.Context, userID primitive.ObjectID) ([]models.ConsentRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := cr.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []models.ConsentRecord{}
	err = cursor.All(ctx, &records)
	return records, err
}

// Latest returns the newest record per consent type.
func (cr *ConsentRepository) Latest(ctx context.Context, userID primitive.ObjectID) (map[models.ConsentType]models.ConsentRecord, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$group", Value: bson.M{"_id": "$type", "latest": bson.M{"$first": "$$ROOT"}}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$latest"}}},
	}

	cursor, err := cr.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.ConsentRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	latest := make(map[models.ConsentType]models.ConsentRecord, len(records))
	for _, r := range records {
		latest[r.Type] = r
	}
	return latest, nil
}
