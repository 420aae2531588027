package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"touristsafety/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type purgeRecorder struct {
	mu      sync.Mutex
	cutoffs map[string]time.Time
	deleted int64
	err     error
}

func (p *purgeRecorder) record(name string, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cutoffs == nil {
		p.cutoffs = make(map[string]time.Time)
	}
	p.cutoffs[name] = cutoff
	return p.deleted, p.err
}

func (p *purgeRecorder) DeleteOlderThan(_ context.Context, t time.Time) (int64, error) {
	return p.record("locations", t)
}

func (p *purgeRecorder) DeleteReadOlderThan(_ context.Context, t time.Time) (int64, error) {
	return p.record("notifications", t)
}

func (p *purgeRecorder) ExpireStale(_ context.Context, t time.Time) (int64, error) {
	return p.record("alerts", t)
}

func TestCleanupWorkerCutoffs(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	cfg := DefaultCleanupWorkerConfig()
	rec := &purgeRecorder{deleted: 4}
	cw := NewCleanupWorker(rec, rec, rec, nil, cfg)
	cw.now = func() time.Time { return now }

	cases := []struct {
		task string
		key  string
		want time.Time
	}{
		{"location_cleanup", "locations", now.Add(-cfg.LocationRetention)},
		{"notification_cleanup", "notifications", now.Add(-cfg.NotificationRetention)},
		{"alert_expiry", "alerts", now.Add(-cfg.StaleAlertAge)},
	}
	for _, tc := range cases {
		if err := cw.RunNow(context.Background(), tc.task); err != nil {
			t.Fatalf("RunNow(%s)=%v", tc.task, err)
		}
		if got := rec.cutoffs[tc.key]; !got.Equal(tc.want) {
			t.Fatalf("RunNow(%s) cutoff=%v want %v", tc.task, got, tc.want)
		}
	}

	stats := cw.GetStats()
	if stats.LocationsCleaned != 4 || stats.NotificationsCleaned != 4 || stats.AlertsExpired != 4 || stats.RecordsDeleted != 8 {
		t.Fatalf("GetStats()=%+v", stats)
	}

	if err := cw.RunNow(context.Background(), "nope"); err == nil {
		t.Fatal("RunNow(unknown)=nil want error")
	}
}

func TestCleanupWorkerScheduling(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	rec := &purgeRecorder{err: errors.New("mongo down")}
	cw := NewCleanupWorker(rec, rec, rec, nil, DefaultCleanupWorkerConfig())
	cw.now = func() time.Time { return now }

	for _, task := range cw.GetTasks() {
		if task.Name == "redis_cleanup" && task.Enabled {
			t.Fatal("redis_cleanup enabled without a client")
		}
	}

	cw.executeScheduledTasks()
	if len(rec.cutoffs) != 0 {
		t.Fatalf("tasks ran before their interval: %v", rec.cutoffs)
	}

	now = now.Add(25 * time.Hour)
	cw.executeScheduledTasks()
	if len(rec.cutoffs) != 3 {
		t.Fatalf("ran %d tasks want 3", len(rec.cutoffs))
	}
	if got := cw.GetStats().TasksFailed; got != 3 {
		t.Fatalf("TasksFailed=%d want 3", got)
	}
}

type inactivityFakes struct {
	mu      sync.Mutex
	samples []models.LocationSample
	open    map[primitive.ObjectID]bool
	raised  []models.CreateAlertRequest
	floor   time.Time
	cutoff  time.Time
}

func (f *inactivityFakes) InactiveSince(_ context.Context, floor, cutoff time.Time) ([]models.LocationSample, error) {
	f.floor, f.cutoff = floor, cutoff
	return f.samples, nil
}

func (f *inactivityFakes) ActiveForUserByType(_ context.Context, userID primitive.ObjectID, _ models.AlertType) (*models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.open[userID] {
		return &models.Alert{UserID: userID}, nil
	}
	return nil, nil
}

func (f *inactivityFakes) CreateAlert(_ context.Context, userID string, req models.CreateAlertRequest) (*models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, _ := primitive.ObjectIDFromHex(userID)
	f.open[id] = true
	f.raised = append(f.raised, req)
	return &models.Alert{ID: primitive.NewObjectID(), UserID: id}, nil
}

func TestInactivityWorkerRaisesOncePerQuietPeriod(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	quietHigh := models.LocationSample{
		UserID:     primitive.NewObjectID(),
		Coordinate: models.Coordinate{Latitude: 28.61, Longitude: 77.21},
		RiskLevel:  models.RiskHigh,
		Timestamp:  now.Add(-3 * time.Hour),
	}
	quietLow := models.LocationSample{
		UserID:    primitive.NewObjectID(),
		Timestamp: now.Add(-150 * time.Minute),
	}
	fakes := &inactivityFakes{
		samples: []models.LocationSample{quietHigh, quietLow},
		open:    map[primitive.ObjectID]bool{},
	}

	iw := NewInactivityWorker(fakes, fakes, fakes, InactivityWorkerConfig{QuietPeriod: 2 * time.Hour, Lookback: 12 * time.Hour})
	iw.now = func() time.Time { return now }

	raised, err := iw.Check(context.Background())
	if err != nil || raised != 2 {
		t.Fatalf("Check()=%d, %v want 2", raised, err)
	}
	if !fakes.cutoff.Equal(now.Add(-2*time.Hour)) || !fakes.floor.Equal(now.Add(-12*time.Hour)) {
		t.Fatalf("window=[%v,%v)", fakes.floor, fakes.cutoff)
	}
	if fakes.raised[0].Type != models.AlertTypeInactivity || fakes.raised[0].Severity != models.SeverityHigh {
		t.Fatalf("raised[0]=%+v want high inactivity", fakes.raised[0])
	}
	if fakes.raised[1].Severity != models.SeverityMedium {
		t.Fatalf("raised[1].Severity=%s want medium", fakes.raised[1].Severity)
	}

	raised, err = iw.Check(context.Background())
	if err != nil || raised != 0 {
		t.Fatalf("Check(again)=%d, %v want 0", raised, err)
	}
	if got := iw.GetStats(); got.Checks != 2 || got.AlertsRaised != 2 {
		t.Fatalf("GetStats()=%+v", got)
	}
}

type fakeZoneReloader struct {
	modified time.Time
	reloads  int
	err      error
}

func (f *fakeZoneReloader) Reload(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.reloads++
	return nil
}

func (f *fakeZoneReloader) LastModified(context.Context) (time.Time, error) {
	return f.modified, nil
}

func (f *fakeZoneReloader) ActiveCount() int { return 0 }

func TestZoneReloadWorkerTick(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	zones := &fakeZoneReloader{modified: now.Add(-time.Hour)}
	zw := NewZoneReloadWorker(zones, ZoneReloadWorkerConfig{Interval: time.Minute, MaxStaleness: 10 * time.Minute})
	zw.now = func() time.Time { return now }
	ctx := context.Background()

	steps := []struct {
		name       string
		advance    time.Duration
		modify     bool
		fail       bool
		wantReload bool
	}{
		{name: "first tick loads", wantReload: true},
		{name: "unchanged skips", advance: time.Minute},
		{name: "modified reloads", advance: time.Minute, modify: true, wantReload: true},
		{name: "failed reload reports error", advance: time.Minute, modify: true, fail: true},
		{name: "retried after failure", advance: time.Minute, wantReload: true},
		{name: "stale reloads", advance: 11 * time.Minute, wantReload: true},
	}

	for _, step := range steps {
		now = now.Add(step.advance)
		if step.modify {
			zones.modified = now
		}
		zones.err = nil
		if step.fail {
			zones.err = errors.New("mongo down")
		}

		got, err := zw.Tick(ctx)
		if step.fail {
			if err == nil {
				t.Fatalf("%s: Tick()=nil want error", step.name)
			}
			continue
		}
		if err != nil || got != step.wantReload {
			t.Fatalf("%s: Tick()=%v, %v want %v", step.name, got, err, step.wantReload)
		}
	}

	if zones.reloads != 4 {
		t.Fatalf("reloads=%d want 4", zones.reloads)
	}
}
