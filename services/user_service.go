package services

import (
	"context"
	"strings"

	"touristsafety/models"
	"touristsafety/utils"

	"go.mongodb.org/mongo-driver/bson"
)

// ProfileStore is the user persistence behind profile management.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, update bson.M) error
	SetEmergencyContacts(ctx context.Context, id string, contacts []models.EmergencyContact) error
	AddItinerary(ctx context.Context, id string, item models.TripItinerary) error
	RemoveItinerary(ctx context.Context, id, itemID string) error
}

type UserService struct {
	userRepo  ProfileStore
	validator *utils.ValidationService
}

func NewUserService(userRepo ProfileStore) *UserService {
	return &UserService{
		userRepo:  userRepo,
		validator: utils.NewValidationService(),
	}
}

func (us *UserService) GetUserProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := us.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Remove sensitive data
	user.Password = ""
	user.OTPSecret = ""
	return user, nil
}

func (us *UserService) UpdateUserProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	if err := us.validator.Validate(req); err != nil {
		return nil, err
	}

	update := bson.M{}

	if req.FirstName != nil {
		update["firstName"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		update["lastName"] = strings.TrimSpace(*req.LastName)
	}
	if req.Nationality != nil {
		update["nationality"] = *req.Nationality
	}
	if req.DeviceToken != nil {
		update["deviceToken"] = *req.DeviceToken
	}
	if req.DeviceType != nil {
		update["deviceType"] = *req.DeviceType
	}
	if req.Settings != nil {
		settings := *req.Settings
		if settings.Language == "" {
			settings.Language = "en"
		}
		update["settings"] = settings
	}

	if len(update) == 0 {
		return nil, utils.NewValidationError("No fields to update")
	}

	if err := us.userRepo.Update(ctx, userID, update); err != nil {
		return nil, err
	}

	return us.GetUserProfile(ctx, userID)
}

// UpdateEmergencyContacts replaces the contact list. A non-empty list always
// ends up with exactly one primary contact: the first one when none is
// marked, an error when several are.
func (us *UserService) UpdateEmergencyContacts(ctx context.Context, userID string, req models.UpdateEmergencyContactsRequest) ([]models.EmergencyContact, error) {
	if err := us.validator.Validate(req); err != nil {
		return nil, err
	}

	contacts, err := normalizeContacts(req.Contacts)
	if err != nil {
		return nil, err
	}

	if err := us.userRepo.SetEmergencyContacts(ctx, userID, contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func normalizeContacts(in []models.EmergencyContact) ([]models.EmergencyContact, error) {
	contacts := make([]models.EmergencyContact, 0, len(in))
	seenPhones := make(map[string]bool, len(in))
	primaries := 0

	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		c.Phone = utils.NormalizePhoneNumber(c.Phone)
		c.Email = strings.ToLower(strings.TrimSpace(c.Email))

		if seenPhones[c.Phone] {
			return nil, utils.NewValidationError("Duplicate emergency contact phone: " + utils.MaskPhoneNumber(c.Phone))
		}
		seenPhones[c.Phone] = true

		if c.IsPrimary {
			primaries++
		}
		contacts = append(contacts, c)
	}

	if primaries > 1 {
		return nil, utils.NewValidationError("Only one emergency contact can be primary")
	}
	if primaries == 0 && len(contacts) > 0 {
		contacts[0].IsPrimary = true
	}
	return contacts, nil
}

func (us *UserService) AddItinerary(ctx context.Context, userID string, req models.AddItineraryRequest) (*models.TripItinerary, error) {
	if err := us.validator.Validate(req); err != nil {
		return nil, err
	}

	item := models.TripItinerary{
		ID:          utils.GenerateUUID(),
		Destination: strings.TrimSpace(req.Destination),
		Coordinate:  models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude},
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Notes:       req.Notes,
	}

	if err := us.userRepo.AddItinerary(ctx, userID, item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (us *UserService) RemoveItinerary(ctx context.Context, userID, itemID string) error {
	if itemID == "" {
		return utils.NewValidationError("Itinerary item ID is required")
	}
	return us.userRepo.RemoveItinerary(ctx, userID, itemID)
}
