package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull     = errors.New("coordination queue is full")
	ErrWorkerStopped = errors.New("coordination worker is not running")
)

type CoordinationWorkerConfig struct {
	WorkerCount       int           `json:"workerCount"`
	QueueSize         int           `json:"queueSize"`
	ProcessingTimeout time.Duration `json:"processingTimeout"`
	RetryAttempts     int           `json:"retryAttempts"`
	RetryDelay        time.Duration `json:"retryDelay"`
}

func DefaultCoordinationWorkerConfig() CoordinationWorkerConfig {
	return CoordinationWorkerConfig{
		WorkerCount:       4,
		QueueSize:         256,
		ProcessingTimeout: 2 * time.Minute,
		RetryAttempts:     2,
		RetryDelay:        2 * time.Second,
	}
}

type CoordinationJob struct {
	ID         string
	Name       string
	Run        func(ctx context.Context) error
	RetryCount int
	CreatedAt  time.Time
}

// CoordinationWorker is a bounded job queue drained by a fixed pool. It
// satisfies services.TaskQueue. Enqueue never blocks: a full queue is
// reported to the caller. Stop drains whatever is already queued.
type CoordinationWorker struct {
	config CoordinationWorkerConfig
	queue  chan CoordinationJob

	// Worker state
	isRunning bool
	mutex     sync.RWMutex

	// Context for shutdown; cancelling it aborts retry waits only
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	processed atomic.Int64
	failed    atomic.Int64
	retried   atomic.Int64
	dropped   atomic.Int64
}

func NewCoordinationWorker(config CoordinationWorkerConfig) *CoordinationWorker {
	defaults := DefaultCoordinationWorkerConfig()
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.ProcessingTimeout <= 0 {
		config.ProcessingTimeout = defaults.ProcessingTimeout
	}
	if config.RetryAttempts < 0 {
		config.RetryAttempts = 0
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.RetryDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &CoordinationWorker{
		config: config,
		queue:  make(chan CoordinationJob, config.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (cw *CoordinationWorker) Start() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if cw.isRunning {
		return nil
	}
	cw.isRunning = true

	logrus.Infof("Starting Coordination Worker with %d workers", cw.config.WorkerCount)
	for i := 0; i < cw.config.WorkerCount; i++ {
		cw.wg.Add(1)
		go cw.worker(i)
	}
	return nil
}

func (cw *CoordinationWorker) Stop() error {
	cw.mutex.Lock()
	if !cw.isRunning {
		cw.mutex.Unlock()
		return nil
	}
	cw.isRunning = false
	close(cw.queue)
	cw.mutex.Unlock()

	logrus.WithField("pending", len(cw.queue)).Info("Stopping Coordination Worker, draining queue...")
	cw.cancel()
	cw.wg.Wait()

	logrus.Info("Coordination Worker stopped successfully")
	return nil
}

// Enqueue implements services.TaskQueue.
func (cw *CoordinationWorker) Enqueue(name string, fn func(ctx context.Context) error) error {
	cw.mutex.RLock()
	defer cw.mutex.RUnlock()

	if !cw.isRunning {
		return ErrWorkerStopped
	}

	job := CoordinationJob{
		ID:        utils.GenerateUUID(),
		Name:      name,
		Run:       fn,
		CreatedAt: time.Now(),
	}

	select {
	case cw.queue <- job:
		return nil
	default:
		cw.dropped.Add(1)
		return ErrQueueFull
	}
}

func (cw *CoordinationWorker) worker(workerID int) {
	defer cw.wg.Done()

	for job := range cw.queue {
		cw.process(job, workerID)
	}
	logrus.Debugf("Coordination worker %d stopping", workerID)
}

// process runs a job with linear backoff between attempts. Jobs run on a
// fresh context so draining at shutdown still gets the full timeout.
func (cw *CoordinationWorker) process(job CoordinationJob, workerID int) {
	log := logrus.WithFields(logrus.Fields{
		"jobId":  job.ID,
		"job":    job.Name,
		"worker": workerID,
	})

	for {
		err := cw.runOnce(job)
		if err == nil {
			cw.processed.Add(1)
			log.WithField("latency", time.Since(job.CreatedAt)).Debug("Coordination job completed")
			return
		}

		if job.RetryCount >= cw.config.RetryAttempts {
			cw.failed.Add(1)
			log.WithError(err).Errorf("Coordination job failed after %d attempts", job.RetryCount+1)
			return
		}

		job.RetryCount++
		cw.retried.Add(1)
		delay := time.Duration(job.RetryCount) * cw.config.RetryDelay
		log.WithError(err).WithField("retryIn", delay).Warn("Coordination job failed, retrying")

		select {
		case <-time.After(delay):
		case <-cw.ctx.Done():
			cw.failed.Add(1)
			log.WithError(err).Error("Coordination job abandoned at shutdown")
			return
		}
	}
}

func (cw *CoordinationWorker) runOnce(job CoordinationJob) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), cw.config.ProcessingTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("coordination job panicked: %v", r)
		}
	}()
	return job.Run(ctx)
}

// Stats implements services.WorkerStatsProvider.
func (cw *CoordinationWorker) Stats() models.WorkerStats {
	return models.WorkerStats{
		Queued:    int64(len(cw.queue)),
		Processed: cw.processed.Load(),
		Failed:    cw.failed.Load(),
		Retried:   cw.retried.Load(),
		Dropped:   cw.dropped.Load(),
	}
}

func (cw *CoordinationWorker) IsRunning() bool {
	cw.mutex.RLock()
	defer cw.mutex.RUnlock()
	return cw.isRunning
}
