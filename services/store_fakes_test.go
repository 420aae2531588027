package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memZoneStore struct {
	mu    sync.Mutex
	zones []models.Geofence
	clock time.Time
}

func (s *memZoneStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memZoneStore) Create(_ context.Context, zone *models.Geofence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	zone.ID = primitive.NewObjectID()
	zone.CreatedAt = s.tick()
	zone.UpdatedAt = zone.CreatedAt
	s.zones = append(s.zones, copyGeofence(*zone))
	return nil
}

func (s *memZoneStore) GetByID(_ context.Context, id string) (*models.Geofence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, z := range s.zones {
		if z.ID.Hex() == id {
			c := copyGeofence(z)
			return &c, nil
		}
	}
	return nil, utils.NewZoneNotFoundError()
}

func (s *memZoneStore) Replace(_ context.Context, zone *models.Geofence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, z := range s.zones {
		if z.ID == zone.ID {
			zone.UpdatedAt = s.tick()
			s.zones[i] = copyGeofence(*zone)
			return nil
		}
	}
	return utils.NewZoneNotFoundError()
}

func (s *memZoneStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, z := range s.zones {
		if z.ID.Hex() == id {
			s.zones = append(s.zones[:i], s.zones[i+1:]...)
			return nil
		}
	}
	return utils.NewZoneNotFoundError()
}

func (s *memZoneStore) ListActive(context.Context) ([]models.Geofence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Geofence{}
	for _, z := range s.zones {
		if z.IsActive {
			out = append(out, copyGeofence(z))
		}
	}
	return out, nil
}

func (s *memZoneStore) List(_ context.Context, riskLevel models.RiskLevel, _, _ int) ([]models.Geofence, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Geofence{}
	for _, z := range s.zones {
		if riskLevel == "" || z.RiskLevel == riskLevel {
			out = append(out, copyGeofence(z))
		}
	}
	return out, int64(len(out)), nil
}

func (s *memZoneStore) LastModified(context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last time.Time
	for _, z := range s.zones {
		if z.UpdatedAt.After(last) {
			last = z.UpdatedAt
		}
	}
	return last, nil
}

type memConsentStore struct {
	mu      sync.Mutex
	records []models.ConsentRecord
}

func (s *memConsentStore) Append(_ context.Context, record *models.ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.ID = primitive.NewObjectID()
	s.records = append(s.records, *record)
	return nil
}

func (s *memConsentStore) History(_ context.Context, userID primitive.ObjectID) ([]models.ConsentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ConsentRecord
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memConsentStore) Latest(ctx context.Context, userID primitive.ObjectID) (map[models.ConsentType]models.ConsentRecord, error) {
	history, _ := s.History(ctx, userID)
	latest := make(map[models.ConsentType]models.ConsentRecord)
	for _, r := range history {
		if _, ok := latest[r.Type]; !ok {
			latest[r.Type] = r
		}
	}
	return latest, nil
}

type memDigitalIDStore struct {
	mu    sync.Mutex
	cards map[primitive.ObjectID]*models.DigitalID
}

func newMemDigitalIDStore() *memDigitalIDStore {
	return &memDigitalIDStore{cards: make(map[primitive.ObjectID]*models.DigitalID)}
}

func (s *memDigitalIDStore) Upsert(_ context.Context, id *models.DigitalID) (*models.DigitalID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cards[id.UserID]; ok {
		existing.HolderName = id.HolderName
		existing.Nationality = id.Nationality
		c := *existing
		return &c, nil
	}
	c := *id
	c.ID = primitive.NewObjectID()
	s.cards[id.UserID] = &c
	out := c
	return &out, nil
}

func (s *memDigitalIDStore) Renew(_ context.Context, id *models.DigitalID) (*models.DigitalID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.cards[id.UserID]
	if !ok {
		return nil, utils.NewNotFoundError("Digital ID")
	}
	existing.ChainHash = id.ChainHash
	existing.IssuedAt = id.IssuedAt
	existing.ExpiresAt = id.ExpiresAt
	existing.Revoked = false
	c := *existing
	return &c, nil
}

func (s *memDigitalIDStore) GetByUserID(_ context.Context, userID primitive.ObjectID) (*models.DigitalID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[userID]
	if !ok {
		return nil, utils.NewNotFoundError("Digital ID")
	}
	c := *card
	return &c, nil
}

func (s *memDigitalIDStore) GetByDocumentNumber(_ context.Context, documentNumber string) (*models.DigitalID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, card := range s.cards {
		if card.DocumentNumber == documentNumber {
			c := *card
			return &c, nil
		}
	}
	return nil, utils.NewNotFoundError("Digital ID")
}

func (s *memDigitalIDStore) Revoke(_ context.Context, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[userID]
	if !ok {
		return utils.NewNotFoundError("Digital ID")
	}
	card.Revoked = true
	return nil
}
