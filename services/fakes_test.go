package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memAlertStore versions alerts like the Mongo repository. beforeSwap runs
// ahead of every CompareAndSwap so a test can slip in a competing write.
type memAlertStore struct {
	mu         sync.Mutex
	alerts     map[primitive.ObjectID]*models.Alert
	order      []primitive.ObjectID
	beforeSwap func()
	swapErr    error
	swaps      int
}

func newMemAlertStore() *memAlertStore {
	return &memAlertStore{alerts: make(map[primitive.ObjectID]*models.Alert)}
}

func cloneAlert(a *models.Alert) *models.Alert {
	c := *a
	c.Media = append([]string(nil), a.Media...)
	c.Responders = append([]models.ResponderAssignment(nil), a.Responders...)
	c.Events = append([]models.AlertEvent(nil), a.Events...)
	if a.Assessment != nil {
		as := *a.Assessment
		as.Factors = append([]models.FactorTag(nil), a.Assessment.Factors...)
		c.Assessment = &as
	}
	return &c
}

func (s *memAlertStore) Save(_ context.Context, alert *models.Alert) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if alert.ID.IsZero() {
		alert.ID = primitive.NewObjectID()
	}
	alert.Version = 1
	s.alerts[alert.ID] = cloneAlert(alert)
	s.order = append(s.order, alert.ID)
	return cloneAlert(alert), nil
}

func (s *memAlertStore) Get(_ context.Context, id primitive.ObjectID) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, utils.NewAlertNotFoundError()
	}
	return cloneAlert(a), nil
}

func (s *memAlertStore) CompareAndSwap(_ context.Context, alert *models.Alert) (bool, error) {
	s.mu.Lock()
	hook := s.beforeSwap
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.swaps++
	if s.swapErr != nil {
		return false, s.swapErr
	}
	current, ok := s.alerts[alert.ID]
	if !ok || current.Version != alert.Version {
		return false, nil
	}
	alert.Version++
	s.alerts[alert.ID] = cloneAlert(alert)
	return true, nil
}

// overwrite replaces the stored alert as another instance would, bumping the
// version.
func (s *memAlertStore) overwrite(fn func(a *models.Alert)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		fn(a)
		a.Version++
	}
}

func (s *memAlertStore) CountInRange(_ context.Context, userID primitive.ObjectID, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.alerts {
		if a.UserID == userID && !a.Timestamp.Before(from) && a.Timestamp.Before(to) {
			n++
		}
	}
	return n, nil
}

func (s *memAlertStore) stored(id primitive.ObjectID) *models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAlert(s.alerts[id])
}

type memUserStore struct {
	users map[primitive.ObjectID]*models.User
	err   error
}

func (s *memUserStore) GetUser(_ context.Context, userID primitive.ObjectID) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, utils.NewUserNotFoundError()
	}
	return u, nil
}

func (s *memUserStore) GetEmergencyContacts(ctx context.Context, userID primitive.ObjectID) ([]models.EmergencyContact, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.EmergencyContacts, nil
}

type memLocationStore struct {
	mu      sync.Mutex
	samples []models.LocationSample
}

func (s *memLocationStore) Save(_ context.Context, sample *models.LocationSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sample.ID.IsZero() {
		sample.ID = primitive.NewObjectID()
	}
	s.samples = append(s.samples, *sample)
	return nil
}

func (s *memLocationStore) RecentSamples(_ context.Context, userID primitive.ObjectID, since time.Time) ([]models.LocationSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LocationSample
	for _, sample := range s.samples {
		if sample.UserID == userID && !sample.Timestamp.Before(since) {
			out = append(out, sample)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

type sentEmail struct {
	address string
	subject string
}

type pushed struct {
	userID string
	title  string
	data   map[string]string
}

// recordingSink records every send. failEmails makes sends to those
// addresses fail; blockEmails makes them wait for context cancellation.
type recordingSink struct {
	mu          sync.Mutex
	emails      []sentEmail
	sms         []string
	pushes      []pushed
	failEmails  map[string]bool
	blockEmails map[string]bool
	pushErr     error
}

func (s *recordingSink) SendEmail(ctx context.Context, address, subject, _ string) error {
	s.mu.Lock()
	s.emails = append(s.emails, sentEmail{address: address, subject: subject})
	fail := s.failEmails[address]
	block := s.blockEmails[address]
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if fail {
		return errors.New("smtp: mailbox unavailable")
	}
	return nil
}

func (s *recordingSink) SendSMS(_ context.Context, phone, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sms = append(s.sms, phone)
	return nil
}

func (s *recordingSink) PushToUser(_ context.Context, userID, title, _ string, data map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushes = append(s.pushes, pushed{userID: userID, title: title, data: data})
	return s.pushErr
}

func (s *recordingSink) emailAddresses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.emails))
	for _, e := range s.emails {
		out = append(out, e.address)
	}
	return out
}

type staticDirectory struct {
	refs []models.ResponderRef
	err  error
}

func (d *staticDirectory) Nearby(context.Context, models.Coordinate, []models.ResponderRole) ([]models.ResponderRef, error) {
	return d.refs, d.err
}

// capturingQueue holds jobs until the test runs them.
type capturingQueue struct {
	mu   sync.Mutex
	jobs []func(ctx context.Context) error
	full bool
}

func (q *capturingQueue) Enqueue(_ string, fn func(ctx context.Context) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return errors.New("queue full")
	}
	q.jobs = append(q.jobs, fn)
	return nil
}

func (q *capturingQueue) runAll(ctx context.Context) []error {
	q.mu.Lock()
	jobs := q.jobs
	q.jobs = nil
	q.mu.Unlock()

	var errs []error
	for _, job := range jobs {
		errs = append(errs, job(ctx))
	}
	return errs
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishAlertEvent(_ context.Context, event string, _ AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// staticZones classifies with a fixed answer regardless of the point.
type staticZones struct {
	match *models.ZoneMatch
}

func (z staticZones) Classify(models.Coordinate) *models.ZoneMatch {
	return z.match
}

func (s *memLocationStore) Latest(_ context.Context, userID primitive.ObjectID) (*models.LocationSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.LocationSample
	for i := range s.samples {
		sample := s.samples[i]
		if sample.UserID != userID {
			continue
		}
		if latest == nil || sample.Timestamp.After(latest.Timestamp) {
			latest = &sample
		}
	}
	return latest, nil
}

func (s *memLocationStore) History(ctx context.Context, userID primitive.ObjectID, since time.Time, limit int) ([]models.LocationSample, error) {
	out, _ := s.RecentSamples(ctx, userID, since)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// recordingRaiser stands in for the coordinator when only CreateAlert is
// needed.
type recordingRaiser struct {
	mu       sync.Mutex
	requests []models.CreateAlertRequest
}

func (r *recordingRaiser) CreateAlert(_ context.Context, userID string, req models.CreateAlertRequest) (*models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	uid, _ := primitive.ObjectIDFromHex(userID)
	return &models.Alert{ID: primitive.NewObjectID(), UserID: uid, Type: req.Type, Status: models.AlertStatusActive}, nil
}

func (r *recordingRaiser) types() []models.AlertType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AlertType, 0, len(r.requests))
	for _, req := range r.requests {
		out = append(out, req.Type)
	}
	return out
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []models.WSMessage
}

func (b *recordingBroadcaster) SendToUser(_ string, message models.WSMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message)
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}
