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

type AlertRepository struct {
	collection *mongo.Collection
}

func NewAlertRepository(db *mongo.Database) *AlertRepository {
	return &AlertRepository{
		collection: db.Collection("alerts"),
	}
}

// =================== BASIC CRUD OPERATIONS ===================

func (ar *AlertRepository) Save(ctx context.Context, alert *models.Alert) (*models.Alert, error) {
	if alert.ID.IsZero() {
		alert.ID = primitive.NewObjectID()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}
	alert.UpdatedAt = alert.CreatedAt
	alert.Version = 1

	_, err := ar.collection.InsertOne(ctx, alert)
	if err != nil {
		logrus.Errorf("Failed to create alert: %v", err)
		return nil, err
	}
	return alert, nil
}

func (ar *AlertRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.Alert, error) {
	var alert models.Alert
	err := ar.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&alert)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewAlertNotFoundError()
		}
		logrus.Errorf("Failed to get alert by ID: %v", err)
		return nil, err
	}
	return &alert, nil
}

// CompareAndSwap replaces the document only while its stored version still
// equals alert.Version, then advances alert.Version. Writers on other
// instances that read an older copy lose and must re-read.
func (ar *AlertRepository) CompareAndSwap(ctx context.Context, alert *models.Alert) (bool, error) {
	expected := alert.Version
	alert.Version = expected + 1

	result, err := ar.collection.ReplaceOne(ctx, bson.M{"_id": alert.ID, "version": expected}, alert)
	if err != nil {
		alert.Version = expected
		logrus.Errorf("Failed to swap alert: %v", err)
		return false, err
	}
	if result.MatchedCount == 0 {
		alert.Version = expected
		return false, nil
	}
	return true, nil
}

func (ar *AlertRepository) CountInRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time) (int64, error) {
	return ar.collection.CountDocuments(ctx, bson.M{
		"userId":    userID,
		"timestamp": bson.M{"$gte": from, "$lt": to},
	})
}

// =================== QUERIES ===================

func (ar *AlertRepository) List(ctx context.Context, filter bson.M, page, pageSize int) ([]models.Alert, int64, error) {
	total, err := ar.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := int64((page - 1) * pageSize)
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(pageSize))

	cursor, err := ar.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.Errorf("Failed to list alerts: %v", err)
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	alerts := []models.Alert{}
	if err = cursor.All(ctx, &alerts); err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

func (ar *AlertRepository) ListForUser(ctx context.Context, userID primitive.ObjectID, query models.AlertListQuery, page, pageSize int) ([]models.Alert, int64, error) {
	filter := bson.M{"userId": userID}
	if query.Status != "" {
		filter["status"] = query.Status
	}
	if query.Type != "" {
		filter["type"] = query.Type
	}
	return ar.List(ctx, filter, page, pageSize)
}

func (ar *AlertRepository) ListActive(ctx context.Context, page, pageSize int) ([]models.Alert, int64, error) {
	return ar.List(ctx, bson.M{"status": models.AlertStatusActive}, page, pageSize)
}

// Summary counts alerts since the given time grouped by status and type.
// A zero userID summarizes every user.
func (ar *AlertRepository) Summary(ctx context.Context, userID primitive.ObjectID, since time.Time) (*models.AlertSummary, error) {
	match := bson.M{"timestamp": bson.M{"$gte": since}}
	if !userID.IsZero() {
		match["userId"] = userID
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$facet", Value: bson.M{
			"byStatus": bson.A{bson.M{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
			"byType":   bson.A{bson.M{"$group": bson.M{"_id": "$type", "count": bson.M{"$sum": 1}}}},
		}}},
	}

	cursor, err := ar.collection.Aggregate(ctx, pipeline)
	if err != nil {
		logrus.Errorf("Failed to aggregate alert summary: %v", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var facets []struct {
		ByStatus []struct {
			ID    models.AlertStatus `bson:"_id"`
			Count int64              `bson:"count"`
		} `bson:"byStatus"`
		ByType []struct {
			ID    models.AlertType `bson:"_id"`
			Count int64            `bson:"count"`
		} `bson:"byType"`
	}
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, err
	}

	summary := &models.AlertSummary{
		ByStatus: make(map[models.AlertStatus]int64),
		ByType:   make(map[models.AlertType]int64),
		Since:    since,
	}
	if len(facets) == 0 {
		return summary, nil
	}
	for _, s := range facets[0].ByStatus {
		summary.ByStatus[s.ID] = s.Count
		summary.Total += s.Count
	}
	for _, t := range facets[0].ByType {
		summary.ByType[t.ID] = t.Count
	}
	return summary, nil
}

// AverageResponseTime returns the mean acknowledged responder response time
// in seconds for alerts since the given time.
func (ar *AlertRepository) AverageResponseTime(ctx context.Context, since time.Time) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"timestamp": bson.M{"$gte": since}}}},
		{{Key: "$unwind", Value: "$responders"}},
		{{Key: "$match", Value: bson.M{"responders.acknowledged": true}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "avg": bson.M{"$avg": "$responders.responseTimeSec"}}}},
	}

	cursor, err := ar.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Avg float64 `bson:"avg"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Avg, nil
}

// ActiveForUserByType finds the user's newest active alert of one type.
// It returns nil without error when there is none.
func (ar *AlertRepository) ActiveForUserByType(ctx context.Context, userID primitive.ObjectID, alertType models.AlertType) (*models.Alert, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	var alert models.Alert
	err := ar.collection.FindOne(ctx, bson.M{
		"userId": userID,
		"type":   alertType,
		"status": models.AlertStatusActive,
	}, opts).Decode(&alert)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &alert, nil
}

// ExpireStale cancels non-SOS alerts left active since before cutoff.
func (ar *AlertRepository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now()
	result, err := ar.collection.UpdateMany(ctx,
		bson.M{
			"status":    models.AlertStatusActive,
			"type":      bson.M{"$ne": models.AlertTypeSOS},
			"timestamp": bson.M{"$lt": cutoff},
		},
		bson.M{
			"$set": bson.M{
				"status":      models.AlertStatusCancelled,
				"statusNotes": "expired",
				"updatedAt":   now,
			},
			"$inc": bson.M{"version": 1},
			"$push": bson.M{"events": models.AlertEvent{
				Type:        models.AlertEventStatusChanged,
				Description: "active -> cancelled (expired)",
				Actor:       "system",
				Timestamp:   now,
			}},
		},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
