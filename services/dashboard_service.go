package services

import (
	"context"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkerStatsProvider reports background job counters.
type WorkerStatsProvider interface {
	Stats() models.WorkerStats
}

type DashboardService struct {
	alertRepo AlertReader
	zones     *ZoneIndex
	jobs      WorkerStatsProvider
	now       func() time.Time
}

func NewDashboardService(alertRepo AlertReader, zones *ZoneIndex, jobs WorkerStatsProvider) *DashboardService {
	return &DashboardService{
		alertRepo: alertRepo,
		zones:     zones,
		jobs:      jobs,
		now:       time.Now,
	}
}

// GetStats summarizes the last days days (default 7) across all users.
func (ds *DashboardService) GetStats(ctx context.Context, days int) (*models.DashboardStats, error) {
	if days <= 0 {
		days = 7
	}
	since := ds.now().AddDate(0, 0, -days)

	summary, err := ds.alertRepo.Summary(ctx, primitive.NilObjectID, since)
	if err != nil {
		return nil, utils.NewDatabaseError("dashboard summary", err)
	}

	_, active, err := ds.alertRepo.ListActive(ctx, 1, 1)
	if err != nil {
		return nil, utils.NewDatabaseError("count active alerts", err)
	}

	avg, err := ds.alertRepo.AverageResponseTime(ctx, since)
	if err != nil {
		logrus.WithError(err).Warn("Failed to compute average response time")
	}

	stats := &models.DashboardStats{
		ActiveAlerts:    active,
		AlertsByStatus:  summary.ByStatus,
		AlertsByType:    summary.ByType,
		ActiveZones:     ds.zones.Len(),
		AvgResponseTime: avg,
		Since:           since,
	}
	if ds.jobs != nil {
		stats.CoordinationJobs = ds.jobs.Stats()
	}
	return stats, nil
}
