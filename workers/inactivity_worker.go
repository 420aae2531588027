package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"touristsafety/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type InactiveUserFinder interface {
	InactiveSince(ctx context.Context, floor, cutoff time.Time) ([]models.LocationSample, error)
}

type OpenAlertFinder interface {
	ActiveForUserByType(ctx context.Context, userID primitive.ObjectID, alertType models.AlertType) (*models.Alert, error)
}

type InactivityAlertRaiser interface {
	CreateAlert(ctx context.Context, userID string, req models.CreateAlertRequest) (*models.Alert, error)
}

type InactivityWorkerConfig struct {
	CheckInterval time.Duration `json:"checkInterval"`
	// A user is inactive once their newest sample is older than QuietPeriod.
	QuietPeriod time.Duration `json:"quietPeriod"`
	// Users silent for longer than Lookback are assumed to have gone home.
	Lookback time.Duration `json:"lookback"`
	Timeout  time.Duration `json:"timeout"`
}

func DefaultInactivityWorkerConfig() InactivityWorkerConfig {
	return InactivityWorkerConfig{
		CheckInterval: 5 * time.Minute,
		QuietPeriod:   2 * time.Hour,
		Lookback:      12 * time.Hour,
		Timeout:       time.Minute,
	}
}

type InactivityWorkerStats struct {
	Checks        int64     `json:"checks"`
	AlertsRaised  int64     `json:"alertsRaised"`
	Failures      int64     `json:"failures"`
	LastCheckedAt time.Time `json:"lastCheckedAt"`
}

// InactivityWorker raises an inactivity alert for tourists whose last
// location ping has gone quiet.
type InactivityWorker struct {
	locations InactiveUserFinder
	alerts    OpenAlertFinder
	raiser    InactivityAlertRaiser
	config    InactivityWorkerConfig

	isRunning bool
	mutex     sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats      InactivityWorkerStats
	statsMutex sync.RWMutex

	now func() time.Time
}

func NewInactivityWorker(locations InactiveUserFinder, alerts OpenAlertFinder, raiser InactivityAlertRaiser, config InactivityWorkerConfig) *InactivityWorker {
	defaults := DefaultInactivityWorkerConfig()
	if config.CheckInterval <= 0 {
		config.CheckInterval = defaults.CheckInterval
	}
	if config.QuietPeriod <= 0 {
		config.QuietPeriod = defaults.QuietPeriod
	}
	if config.Lookback <= config.QuietPeriod {
		config.Lookback = config.QuietPeriod + defaults.Lookback
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &InactivityWorker{
		locations: locations,
		alerts:    alerts,
		raiser:    raiser,
		config:    config,
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}
}

func (iw *InactivityWorker) Start() error {
	iw.mutex.Lock()
	defer iw.mutex.Unlock()

	if iw.isRunning {
		return nil
	}
	iw.isRunning = true

	logrus.Infof("Starting Inactivity Worker (quiet period %v)", iw.config.QuietPeriod)

	iw.wg.Add(1)
	go iw.loop()
	return nil
}

func (iw *InactivityWorker) Stop() error {
	iw.mutex.Lock()
	defer iw.mutex.Unlock()

	if !iw.isRunning {
		return nil
	}

	iw.cancel()
	iw.isRunning = false
	iw.wg.Wait()

	logrus.Info("Inactivity Worker stopped successfully")
	return nil
}

func (iw *InactivityWorker) loop() {
	defer iw.wg.Done()

	ticker := time.NewTicker(iw.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(iw.ctx, iw.config.Timeout)
			if _, err := iw.Check(ctx); err != nil {
				logrus.WithError(err).Error("Inactivity check failed")
			}
			cancel()

		case <-iw.ctx.Done():
			return
		}
	}
}

// Check runs one sweep and returns the number of alerts raised. A user who
// already has an active inactivity alert is skipped.
func (iw *InactivityWorker) Check(ctx context.Context) (int, error) {
	now := iw.now()
	samples, err := iw.locations.InactiveSince(ctx, now.Add(-iw.config.Lookback), now.Add(-iw.config.QuietPeriod))
	if err != nil {
		iw.recordCheck(now, 0, 1)
		return 0, fmt.Errorf("find inactive users: %w", err)
	}

	raised, failures := 0, 0
	for _, sample := range samples {
		log := logrus.WithFields(logrus.Fields{
			"userId":   sample.UserID.Hex(),
			"lastSeen": sample.Timestamp,
		})

		open, err := iw.alerts.ActiveForUserByType(ctx, sample.UserID, models.AlertTypeInactivity)
		if err != nil {
			failures++
			log.WithError(err).Warn("Failed to look up open inactivity alert")
			continue
		}
		if open != nil {
			continue
		}

		severity := models.SeverityMedium
		if sample.RiskLevel == models.RiskHigh {
			severity = models.SeverityHigh
		}

		quiet := now.Sub(sample.Timestamp).Truncate(time.Minute)
		_, err = iw.raiser.CreateAlert(ctx, sample.UserID.Hex(), models.CreateAlertRequest{
			Type:      models.AlertTypeInactivity,
			Severity:  severity,
			Latitude:  sample.Coordinate.Latitude,
			Longitude: sample.Coordinate.Longitude,
			Message:   fmt.Sprintf("No location update for %v", quiet),
		})
		if err != nil {
			failures++
			log.WithError(err).Warn("Failed to raise inactivity alert")
			continue
		}
		raised++
		log.Info("Raised inactivity alert")
	}

	iw.recordCheck(now, raised, failures)
	return raised, nil
}

func (iw *InactivityWorker) recordCheck(at time.Time, raised, failures int) {
	iw.statsMutex.Lock()
	defer iw.statsMutex.Unlock()
	iw.stats.Checks++
	iw.stats.AlertsRaised += int64(raised)
	iw.stats.Failures += int64(failures)
	iw.stats.LastCheckedAt = at
}

func (iw *InactivityWorker) GetStats() InactivityWorkerStats {
	iw.statsMutex.RLock()
	defer iw.statsMutex.RUnlock()
	return iw.stats
}
