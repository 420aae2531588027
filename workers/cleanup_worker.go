package workers

import (
	"context"
	"sync"
	"time"

	"touristsafety/utils"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

type LocationPurger interface {
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

type NotificationPurger interface {
	DeleteReadOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

type StaleAlertExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type CleanupWorker struct {
	// Dependencies
	redis *redis.Client

	// Repositories
	locations     LocationPurger
	notifications NotificationPurger
	alerts        StaleAlertExpirer

	// Worker configuration
	config CleanupWorkerConfig

	// Worker state
	isRunning bool
	mutex     sync.RWMutex

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Cleanup tasks
	tasks     []CleanupTask
	tasksLock sync.Mutex

	// Metrics
	stats      CleanupWorkerStats
	statsMutex sync.RWMutex

	now func() time.Time
}

type CleanupWorkerConfig struct {
	// Retention periods
	LocationRetention     time.Duration `json:"locationRetention"`
	NotificationRetention time.Duration `json:"notificationRetention"`
	StaleAlertAge         time.Duration `json:"staleAlertAge"`

	// Cleanup intervals
	LocationCleanupInterval     time.Duration `json:"locationCleanupInterval"`
	NotificationCleanupInterval time.Duration `json:"notificationCleanupInterval"`
	AlertExpiryInterval         time.Duration `json:"alertExpiryInterval"`
	RedisCleanupInterval        time.Duration `json:"redisCleanupInterval"`

	// Scan pattern for keys the rate limiter owns
	RedisKeyPattern string `json:"redisKeyPattern"`

	// Feature flags
	EnableLocationCleanup     bool `json:"enableLocationCleanup"`
	EnableNotificationCleanup bool `json:"enableNotificationCleanup"`
	EnableAlertExpiry         bool `json:"enableAlertExpiry"`
	EnableRedisCleanup        bool `json:"enableRedisCleanup"`
}

func DefaultCleanupWorkerConfig() CleanupWorkerConfig {
	return CleanupWorkerConfig{
		LocationRetention:     30 * 24 * time.Hour,
		NotificationRetention: 90 * 24 * time.Hour,
		StaleAlertAge:         24 * time.Hour,

		LocationCleanupInterval:     24 * time.Hour,
		NotificationCleanupInterval: 24 * time.Hour,
		AlertExpiryInterval:         time.Hour,
		RedisCleanupInterval:        time.Hour,

		RedisKeyPattern: "ratelimit:*",

		EnableLocationCleanup:     true,
		EnableNotificationCleanup: true,
		EnableAlertExpiry:         true,
		EnableRedisCleanup:        true,
	}
}

type CleanupTask struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Interval    time.Duration `json:"interval"`
	LastRun     time.Time     `json:"lastRun"`
	NextRun     time.Time     `json:"nextRun"`
	Enabled     bool          `json:"enabled"`
	Function    func(ctx context.Context) error
}

type CleanupWorkerStats struct {
	TasksExecuted        int64            `json:"tasksExecuted"`
	TasksFailed          int64            `json:"tasksFailed"`
	RecordsDeleted       int64            `json:"recordsDeleted"`
	LocationsCleaned     int64            `json:"locationsCleaned"`
	NotificationsCleaned int64            `json:"notificationsCleaned"`
	AlertsExpired        int64            `json:"alertsExpired"`
	RedisKeysCleaned     int64            `json:"redisKeysCleaned"`
	LastCleanupAt        time.Time        `json:"lastCleanupAt"`
	TaskExecutionTimes   map[string]int64 `json:"taskExecutionTimes"` // ms
	StartTime            time.Time        `json:"startTime"`
}

func NewCleanupWorker(
	locations LocationPurger,
	notifications NotificationPurger,
	alerts StaleAlertExpirer,
	redisClient *redis.Client,
	config CleanupWorkerConfig,
) *CleanupWorker {
	ctx, cancel := context.WithCancel(context.Background())

	worker := &CleanupWorker{
		redis:         redisClient,
		locations:     locations,
		notifications: notifications,
		alerts:        alerts,
		config:        config,
		ctx:           ctx,
		cancel:        cancel,
		stats: CleanupWorkerStats{
			StartTime:          time.Now(),
			TaskExecutionTimes: make(map[string]int64),
		},
		now: time.Now,
	}

	worker.initializeTasks()
	return worker
}

func (cw *CleanupWorker) Start() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if cw.isRunning {
		return nil
	}

	cw.isRunning = true

	logrus.Info("Starting Cleanup Worker...")

	cw.wg.Add(1)
	go cw.taskScheduler()

	logrus.Infof("Cleanup Worker started with %d tasks", len(cw.tasks))
	return nil
}

func (cw *CleanupWorker) Stop() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if !cw.isRunning {
		return nil
	}

	logrus.Info("Stopping Cleanup Worker...")

	cw.cancel()
	cw.isRunning = false
	cw.wg.Wait()

	logrus.Info("Cleanup Worker stopped successfully")
	return nil
}

func (cw *CleanupWorker) initializeTasks() {
	cw.tasks = []CleanupTask{
		{
			Name:        "location_cleanup",
			Description: "Delete location samples past retention",
			Interval:    cw.config.LocationCleanupInterval,
			Enabled:     cw.config.EnableLocationCleanup && cw.locations != nil,
			Function:    cw.cleanupLocations,
		},
		{
			Name:        "notification_cleanup",
			Description: "Delete read notifications past retention",
			Interval:    cw.config.NotificationCleanupInterval,
			Enabled:     cw.config.EnableNotificationCleanup && cw.notifications != nil,
			Function:    cw.cleanupNotifications,
		},
		{
			Name:        "alert_expiry",
			Description: "Cancel automatic alerts nobody acted on",
			Interval:    cw.config.AlertExpiryInterval,
			Enabled:     cw.config.EnableAlertExpiry && cw.alerts != nil,
			Function:    cw.expireStaleAlerts,
		},
		{
			Name:        "redis_cleanup",
			Description: "Delete rate limit keys that lost their TTL",
			Interval:    cw.config.RedisCleanupInterval,
			Enabled:     cw.config.EnableRedisCleanup && cw.redis != nil,
			Function:    cw.cleanupRedisKeys,
		},
	}

	now := cw.now()
	for i := range cw.tasks {
		cw.tasks[i].NextRun = now.Add(cw.tasks[i].Interval)
	}
}

func (cw *CleanupWorker) taskScheduler() {
	defer cw.wg.Done()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cw.executeScheduledTasks()

		case <-cw.ctx.Done():
			return
		}
	}
}

func (cw *CleanupWorker) executeScheduledTasks() {
	cw.tasksLock.Lock()
	defer cw.tasksLock.Unlock()

	now := cw.now()

	for i := range cw.tasks {
		task := &cw.tasks[i]

		if !task.Enabled || now.Before(task.NextRun) {
			continue
		}

		logrus.Infof("Executing cleanup task: %s", task.Name)

		startTime := time.Now()
		err := task.Function(cw.ctx)
		executionTime := time.Since(startTime)

		cw.statsMutex.Lock()
		cw.stats.TaskExecutionTimes[task.Name] = executionTime.Milliseconds()
		if err != nil {
			cw.stats.TasksFailed++
			logrus.Errorf("Cleanup task %s failed: %v", task.Name, err)
		} else {
			cw.stats.TasksExecuted++
			logrus.Infof("Cleanup task %s completed in %v", task.Name, executionTime)
		}
		cw.statsMutex.Unlock()

		task.LastRun = now
		task.NextRun = now.Add(task.Interval)
	}
}

// RunNow executes one task immediately regardless of its schedule.
func (cw *CleanupWorker) RunNow(ctx context.Context, taskName string) error {
	cw.tasksLock.Lock()
	defer cw.tasksLock.Unlock()

	for i := range cw.tasks {
		if cw.tasks[i].Name == taskName {
			cw.tasks[i].LastRun = cw.now()
			return cw.tasks[i].Function(ctx)
		}
	}
	return utils.NewValidationError("Task not found: " + taskName)
}

func (cw *CleanupWorker) cleanupLocations(ctx context.Context) error {
	cutoffTime := cw.now().Add(-cw.config.LocationRetention)

	deletedCount, err := cw.locations.DeleteOlderThan(ctx, cutoffTime)
	if err != nil {
		return err
	}

	cw.statsMutex.Lock()
	cw.stats.LocationsCleaned += deletedCount
	cw.stats.RecordsDeleted += deletedCount
	cw.stats.LastCleanupAt = cw.now()
	cw.statsMutex.Unlock()

	logrus.Infof("Cleaned up %d old location samples", deletedCount)
	return nil
}

func (cw *CleanupWorker) cleanupNotifications(ctx context.Context) error {
	cutoffTime := cw.now().Add(-cw.config.NotificationRetention)

	deletedCount, err := cw.notifications.DeleteReadOlderThan(ctx, cutoffTime)
	if err != nil {
		return err
	}

	cw.statsMutex.Lock()
	cw.stats.NotificationsCleaned += deletedCount
	cw.stats.RecordsDeleted += deletedCount
	cw.stats.LastCleanupAt = cw.now()
	cw.statsMutex.Unlock()

	logrus.Infof("Cleaned up %d read notifications", deletedCount)
	return nil
}

// expireStaleAlerts cancels geofence, inactivity and system alerts left
// active past StaleAlertAge. SOS alerts are never expired.
func (cw *CleanupWorker) expireStaleAlerts(ctx context.Context) error {
	cutoffTime := cw.now().Add(-cw.config.StaleAlertAge)

	expired, err := cw.alerts.ExpireStale(ctx, cutoffTime)
	if err != nil {
		return err
	}

	cw.statsMutex.Lock()
	cw.stats.AlertsExpired += expired
	cw.stats.LastCleanupAt = cw.now()
	cw.statsMutex.Unlock()

	if expired > 0 {
		logrus.Infof("Expired %d stale alerts", expired)
	}
	return nil
}

func (cw *CleanupWorker) cleanupRedisKeys(ctx context.Context) error {
	var (
		cursor       uint64
		totalCleaned int64
	)

	for {
		keys, next, err := cw.redis.Scan(ctx, cursor, cw.config.RedisKeyPattern, 500).Result()
		if err != nil {
			return err
		}

		for _, key := range keys {
			ttl, err := cw.redis.TTL(ctx, key).Result()
			if err != nil {
				continue
			}
			// -1 means no expiry; the limiter always sets one
			if ttl == -1 {
				if err := cw.redis.Del(ctx, key).Err(); err == nil {
					totalCleaned++
				}
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	cw.statsMutex.Lock()
	cw.stats.RedisKeysCleaned += totalCleaned
	cw.stats.LastCleanupAt = cw.now()
	cw.statsMutex.Unlock()

	logrus.Infof("Cleaned up %d Redis keys", totalCleaned)
	return nil
}

func (cw *CleanupWorker) GetStats() CleanupWorkerStats {
	cw.statsMutex.RLock()
	defer cw.statsMutex.RUnlock()

	stats := cw.stats
	stats.TaskExecutionTimes = make(map[string]int64, len(cw.stats.TaskExecutionTimes))
	for k, v := range cw.stats.TaskExecutionTimes {
		stats.TaskExecutionTimes[k] = v
	}
	return stats
}

func (cw *CleanupWorker) GetTasks() []CleanupTask {
	cw.tasksLock.Lock()
	defer cw.tasksLock.Unlock()

	tasks := make([]CleanupTask, len(cw.tasks))
	copy(tasks, cw.tasks)
	return tasks
}
