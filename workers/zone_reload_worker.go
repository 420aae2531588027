package workers

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type ZoneReloader interface {
	Reload(ctx context.Context) error
	LastModified(ctx context.Context) (time.Time, error)
	ActiveCount() int
}

type ZoneReloadWorkerConfig struct {
	Interval time.Duration `json:"interval"`
	// Deletes on another instance do not move LastModified, so the index
	// is rebuilt unconditionally once it is this old.
	MaxStaleness time.Duration `json:"maxStaleness"`
	Timeout      time.Duration `json:"timeout"`
}

// ZoneReloadWorker keeps the in-memory zone index in step with the zone
// collection so several API instances converge on the same zone set.
type ZoneReloadWorker struct {
	zones  ZoneReloader
	config ZoneReloadWorkerConfig

	isRunning bool
	mutex     sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// last reload bookkeeping, touched only by the loop and Tick
	stateMu      sync.Mutex
	seenModified time.Time
	lastReload   time.Time

	now func() time.Time
}

func NewZoneReloadWorker(zones ZoneReloader, config ZoneReloadWorkerConfig) *ZoneReloadWorker {
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.MaxStaleness <= 0 {
		config.MaxStaleness = 10 * config.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ZoneReloadWorker{
		zones:  zones,
		config: config,
		ctx:    ctx,
		cancel: cancel,
		now:    time.Now,
	}
}

// Start performs an initial load before the ticker begins. A failed
// initial load is returned so startup can decide whether to continue.
func (zw *ZoneReloadWorker) Start() error {
	zw.mutex.Lock()
	defer zw.mutex.Unlock()

	if zw.isRunning {
		return nil
	}

	ctx, cancel := context.WithTimeout(zw.ctx, zw.config.Timeout)
	_, err := zw.Tick(ctx)
	cancel()

	zw.isRunning = true
	zw.wg.Add(1)
	go zw.loop()

	logrus.WithFields(logrus.Fields{
		"interval": zw.config.Interval,
		"zones":    zw.zones.ActiveCount(),
	}).Info("Zone Reload Worker started")
	return err
}

func (zw *ZoneReloadWorker) Stop() error {
	zw.mutex.Lock()
	defer zw.mutex.Unlock()

	if !zw.isRunning {
		return nil
	}

	zw.cancel()
	zw.isRunning = false
	zw.wg.Wait()

	logrus.Info("Zone Reload Worker stopped successfully")
	return nil
}

func (zw *ZoneReloadWorker) loop() {
	defer zw.wg.Done()

	ticker := time.NewTicker(zw.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(zw.ctx, zw.config.Timeout)
			if _, err := zw.Tick(ctx); err != nil {
				logrus.WithError(err).Warn("Zone reload failed, keeping current index")
			}
			cancel()

		case <-zw.ctx.Done():
			return
		}
	}
}

// Tick reloads the index when the zone collection changed or the index
// has gone stale. It reports whether a reload happened.
func (zw *ZoneReloadWorker) Tick(ctx context.Context) (bool, error) {
	zw.stateMu.Lock()
	defer zw.stateMu.Unlock()

	modified, err := zw.zones.LastModified(ctx)
	if err != nil {
		return false, err
	}

	now := zw.now()
	stale := zw.lastReload.IsZero() || now.Sub(zw.lastReload) >= zw.config.MaxStaleness
	if !stale && modified.Equal(zw.seenModified) {
		return false, nil
	}

	if err := zw.zones.Reload(ctx); err != nil {
		return false, err
	}
	zw.seenModified = modified
	zw.lastReload = now
	return true, nil
}
