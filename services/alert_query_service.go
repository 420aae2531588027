package services

import (
	"context"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AlertReader is the read side of the alert collection.
type AlertReader interface {
	List(ctx context.Context, filter bson.M, page, pageSize int) ([]models.Alert, int64, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID, query models.AlertListQuery, page, pageSize int) ([]models.Alert, int64, error)
	ListActive(ctx context.Context, page, pageSize int) ([]models.Alert, int64, error)
	Summary(ctx context.Context, userID primitive.ObjectID, since time.Time) (*models.AlertSummary, error)
	AverageResponseTime(ctx context.Context, since time.Time) (float64, error)
}

// AlertQueryService lists alerts. Tourists see their own; responders and
// admins see everyone's.
type AlertQueryService struct {
	alertRepo AlertReader
	validator *utils.ValidationService
	now       func() time.Time
}

func NewAlertQueryService(alertRepo AlertReader) *AlertQueryService {
	return &AlertQueryService{
		alertRepo: alertRepo,
		validator: utils.NewValidationService(),
		now:       time.Now,
	}
}

func (qs *AlertQueryService) ListAlerts(ctx context.Context, userID, role string, query models.AlertListQuery, page, pageSize int) ([]models.Alert, int64, error) {
	if err := qs.validator.Validate(query); err != nil {
		return nil, 0, err
	}

	var (
		alerts []models.Alert
		total  int64
		err    error
	)
	if role == models.RoleAdmin || role == models.RoleResponder {
		filter := bson.M{}
		if query.Status != "" {
			filter["status"] = query.Status
		}
		if query.Type != "" {
			filter["type"] = query.Type
		}
		alerts, total, err = qs.alertRepo.List(ctx, filter, page, pageSize)
	} else {
		userObjectID, parseErr := utils.ParseObjectID(userID, "user ID")
		if parseErr != nil {
			return nil, 0, parseErr
		}
		alerts, total, err = qs.alertRepo.ListForUser(ctx, userObjectID, query, page, pageSize)
	}
	if err != nil {
		return nil, 0, utils.NewDatabaseError("list alerts", err)
	}
	return alerts, total, nil
}

// Summary counts the user's alerts over the last days days (default 30).
func (qs *AlertQueryService) Summary(ctx context.Context, userID string, days int) (*models.AlertSummary, error) {
	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 30
	}

	summary, err := qs.alertRepo.Summary(ctx, userObjectID, qs.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, utils.NewDatabaseError("alert summary", err)
	}
	return summary, nil
}
