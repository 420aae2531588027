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

type DigitalIDRepository struct {
	collection *mongo.Collection
}

func NewDigitalIDRepository(db *mongo.Database) *DigitalIDRepository {
	return &DigitalIDRepository{
		collection: db.Collection("digital_ids"),
	}
}

// Upsert issues the user's single identity card. userId carries a unique
// index, so concurrent first issues converge on one document and the
// identity fields of the first insert win.
func (dr *DigitalIDRepository) Upsert(ctx context.Context, id *models.DigitalID) (*models.DigitalID, error) {
	now := time.Now()
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	update := bson.M{
		"$set": bson.M{
			"holderName":  id.HolderName,
			"nationality": id.Nationality,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{
			"documentNumber": id.DocumentNumber,
			"chainHash":      id.ChainHash,
			"issuedAt":       id.IssuedAt,
			"expiresAt":      id.ExpiresAt,
			"revoked":        false,
		},
	}

	var saved models.DigitalID
	err := dr.collection.FindOneAndUpdate(ctx, bson.M{"userId": id.UserID}, update, opts).Decode(&saved)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// Renew re-dates an existing card and clears any revocation. The document
// number is kept.
func (dr *DigitalIDRepository) Renew(ctx context.Context, id *models.DigitalID) (*models.DigitalID, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	update := bson.M{"$set": bson.M{
		"holderName":  id.HolderName,
		"nationality": id.Nationality,
		"chainHash":   id.ChainHash,
		"issuedAt":    id.IssuedAt,
		"expiresAt":   id.ExpiresAt,
		"revoked":     false,
		"updatedAt":   time.Now(),
	}}

	var saved models.DigitalID
	err := dr.collection.FindOneAndUpdate(ctx, bson.M{"userId": id.UserID}, update, opts).Decode(&saved)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewNotFoundError("Digital ID")
		}
		return nil, err
	}
	return &saved, nil
}

func (dr *DigitalIDRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.DigitalID, error) {
	var id models.DigitalID
	err := dr.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewNotFoundError("Digital ID")
		}
		return nil, err
	}
	return &id, nil
}

func (dr *DigitalIDRepository) GetByDocumentNumber(ctx context.Context, documentNumber string) (*models.DigitalID, error) {
	var id models.DigitalID
	err := dr.collection.FindOne(ctx, bson.M{"documentNumber": documentNumber}).Decode(&id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewNotFoundError("Digital ID")
		}
		return nil, err
	}
	return &id, nil
}

func (dr *DigitalIDRepository) Revoke(ctx context.Context, userID primitive.ObjectID) error {
	result, err := dr.collection.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"revoked": true, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("Digital ID")
	}
	return nil
}
