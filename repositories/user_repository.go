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

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

func (ur *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	user.LastSeen = time.Now()
	user.IsActive = true
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.EmergencyContacts == nil {
		user.EmergencyContacts = []models.EmergencyContact{}
	}

	_, err := ur.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewConflictError("An account with this email or phone already exists")
		}
		logrus.Errorf("Failed to create user: %v", err)
		return err
	}
	return nil
}

func (ur *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.NewValidationError("Invalid user ID")
	}
	return ur.GetUser(ctx, objectID)
}

// GetUser satisfies services.UserStore.
func (ur *UserRepository) GetUser(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := ur.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewUserNotFoundError()
		}
		return nil, err
	}
	return &user, nil
}

func (ur *UserRepository) GetEmergencyContacts(ctx context.Context, userID primitive.ObjectID) ([]models.EmergencyContact, error) {
	var user models.User
	opts := options.FindOne().SetProjection(bson.M{"emergencyContacts": 1})
	err := ur.collection.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewUserNotFoundError()
		}
		return nil, err
	}
	return user.EmergencyContacts, nil
}

func (ur *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := ur.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewUserNotFoundError()
		}
		return nil, err
	}
	return &user, nil
}

func (ur *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	err := ur.collection.FindOne(ctx, bson.M{"phone": phone}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewUserNotFoundError()
		}
		return nil, err
	}
	return &user, nil
}

func (ur *UserRepository) Update(ctx context.Context, id string, update bson.M) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.NewValidationError("Invalid user ID")
	}

	update["updatedAt"] = time.Now()

	result, err := ur.collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": update},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewUserNotFoundError()
	}
	return nil
}

func (ur *UserRepository) UpdateLastSeen(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.NewValidationError("Invalid user ID")
	}

	_, err = ur.collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{
			"lastSeen":  time.Now(),
			"updatedAt": time.Now(),
		}},
	)
	return err
}

func (ur *UserRepository) SetEmergencyContacts(ctx context.Context, id string, contacts []models.EmergencyContact) error {
	if contacts == nil {
		contacts = []models.EmergencyContact{}
	}
	return ur.Update(ctx, id, bson.M{"emergencyContacts": contacts})
}

func (ur *UserRepository) AddItinerary(ctx context.Context, id string, item models.TripItinerary) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.NewValidationError("Invalid user ID")
	}

	result, err := ur.collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$push": bson.M{"itinerary": item},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewUserNotFoundError()
	}
	return nil
}

func (ur *UserRepository) RemoveItinerary(ctx context.Context, id, itemID string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.NewValidationError("Invalid user ID")
	}

	result, err := ur.collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID, "itinerary.id": itemID},
		bson.M{
			"$pull": bson.M{"itinerary": bson.M{"id": itemID}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("Itinerary item")
	}
	return nil
}

func (ur *UserRepository) CountActive(ctx context.Context) (int64, error) {
	return ur.collection.CountDocuments(ctx, bson.M{"isActive": true})
}
