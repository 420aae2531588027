package services

import (
	"context"
	"sync"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memAccounts backs AccountStore and ProfileStore. Update understands the
// flat $set fields the services write.
type memAccounts struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemAccounts() *memAccounts {
	return &memAccounts{users: make(map[string]*models.User)}
}

func (m *memAccounts) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email || u.Phone == user.Phone {
			return utils.NewConflictError("An account with this email or phone already exists")
		}
	}
	user.ID = primitive.NewObjectID()
	user.IsActive = true
	c := *user
	m.users[user.ID.Hex()] = &c
	return nil
}

func (m *memAccounts) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, utils.NewUserNotFoundError()
	}
	c := *u
	return &c, nil
}

func (m *memAccounts) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.GetByID(ctx, id.Hex())
}

func (m *memAccounts) GetEmergencyContacts(ctx context.Context, id primitive.ObjectID) ([]models.EmergencyContact, error) {
	u, err := m.GetByID(ctx, id.Hex())
	if err != nil {
		return nil, err
	}
	return u.EmergencyContacts, nil
}

func (m *memAccounts) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, utils.NewUserNotFoundError()
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *memAccounts) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Phone == phone })
}

func (m *memAccounts) Update(_ context.Context, id string, update bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return utils.NewUserNotFoundError()
	}
	for k, v := range update {
		switch k {
		case "firstName":
			u.FirstName = v.(string)
		case "lastName":
			u.LastName = v.(string)
		case "nationality":
			u.Nationality = v.(string)
		case "deviceToken":
			u.DeviceToken = v.(string)
		case "deviceType":
			u.DeviceType = v.(string)
		case "settings":
			u.Settings = v.(models.UserSettings)
		case "otpSecret":
			u.OTPSecret = v.(string)
		case "phoneVerified":
			u.PhoneVerified = v.(bool)
		case "isActive":
			u.IsActive = v.(bool)
		}
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (m *memAccounts) UpdateLastSeen(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.LastSeen = time.Now()
	}
	return nil
}

func (m *memAccounts) SetEmergencyContacts(_ context.Context, id string, contacts []models.EmergencyContact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return utils.NewUserNotFoundError()
	}
	u.EmergencyContacts = contacts
	return nil
}

func (m *memAccounts) AddItinerary(_ context.Context, id string, item models.TripItinerary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return utils.NewUserNotFoundError()
	}
	u.Itinerary = append(u.Itinerary, item)
	return nil
}

func (m *memAccounts) RemoveItinerary(_ context.Context, id, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return utils.NewUserNotFoundError()
	}
	for i, item := range u.Itinerary {
		if item.ID == itemID {
			u.Itinerary = append(u.Itinerary[:i], u.Itinerary[i+1:]...)
			return nil
		}
	}
	return utils.NewNotFoundError("Itinerary item")
}

type recordingSMS struct {
	mu       sync.Mutex
	messages map[string][]string
	err      error
}

func (r *recordingSMS) SendSMS(_ context.Context, phone, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.messages == nil {
		r.messages = make(map[string][]string)
	}
	r.messages[phone] = append(r.messages[phone], message)
	return nil
}

func (r *recordingSMS) last(phone string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[phone]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}
