package services

import (
	"context"
	"time"

	"touristsafety/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Storage and delivery contracts the safety core depends on. The Mongo
// repositories and the composite notification sink satisfy them in
// production; tests use in-memory fakes.

type UserStore interface {
	GetUser(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	GetEmergencyContacts(ctx context.Context, userID primitive.ObjectID) ([]models.EmergencyContact, error)
}

type AlertStore interface {
	Save(ctx context.Context, alert *models.Alert) (*models.Alert, error)
	// Get fails with a NotFound ServiceError when the alert does not exist.
	Get(ctx context.Context, id primitive.ObjectID) (*models.Alert, error)
	// CompareAndSwap writes alert only if the stored version still equals
	// alert.Version, advancing it on success. It reports whether the write
	// happened.
	CompareAndSwap(ctx context.Context, alert *models.Alert) (bool, error)
	// CountInRange counts a user's alerts with from <= timestamp < to.
	CountInRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time) (int64, error)
}

type LocationStore interface {
	Save(ctx context.Context, sample *models.LocationSample) error
	// RecentSamples returns samples at or after since in ascending time order.
	RecentSamples(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]models.LocationSample, error)
}

type NotificationSink interface {
	SendEmail(ctx context.Context, address, subject, body string) error
	SendSMS(ctx context.Context, phone, message string) error
	PushToUser(ctx context.Context, userID, title, body string, data map[string]string) error
}

type ResponderDirectory interface {
	Nearby(ctx context.Context, coordinate models.Coordinate, roles []models.ResponderRole) ([]models.ResponderRef, error)
}

// TaskQueue runs fire-and-forget work off the request path.
type TaskQueue interface {
	Enqueue(name string, fn func(ctx context.Context) error) error
}

// ZoneClassifier is the read side of ZoneIndex.
type ZoneClassifier interface {
	Classify(p models.Coordinate) *models.ZoneMatch
}
