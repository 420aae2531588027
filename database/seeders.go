package database

import (
	"context"
	"fmt"
	"time"

	"touristsafety/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// Seeder represents a database seeder
type Seeder struct {
	Name        string
	Description string
	Seed        func(*mongo.Database) error
}

// seeders contains all database seeders
var seeders = []Seeder{
	{
		Name:        "demo_accounts",
		Description: "Create admin, responder and tourist accounts for development",
		Seed:        seedDemoAccounts,
	},
	{
		Name:        "demo_responders",
		Description: "Create police and ambulance units near the demo area",
		Seed:        seedDemoResponders,
	},
	{
		Name:        "demo_zones",
		Description: "Create demo risk zones",
		Seed:        seedDemoZones,
	},
}

const demoDomain = "@demo.touristsafety.app"

// RunSeeders executes all database seeders
func RunSeeders(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seedersCol := db.Collection("seeders")

	logrus.Info("🌱 Running database seeders...")

	for _, seeder := range seeders {
		// Each seeder runs once
		count, err := seedersCol.CountDocuments(ctx, bson.M{"name": seeder.Name})
		if err == nil && count > 0 {
			continue
		}

		logrus.Infof("🔄 Running seeder: %s", seeder.Name)

		if err := seeder.Seed(db); err != nil {
			logrus.Errorf("❌ Seeder %s failed: %v", seeder.Name, err)
			continue // Continue with other seeders
		}

		// Record successful seeder
		_, err = seedersCol.InsertOne(ctx, bson.M{
			"name":      seeder.Name,
			"createdAt": time.Now(),
		})
		if err != nil {
			logrus.Warnf("Failed to record seeder %s: %v", seeder.Name, err)
		}

		logrus.Infof("✅ Seeder %s completed", seeder.Name)
	}

	logrus.Info("🌱 All seeders completed")
	return nil
}

func seedDemoAccounts(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	usersCol := db.Collection("users")

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	account := func(first, last, local, phone, role string) models.User {
		return models.User{
			ID:            primitive.NewObjectID(),
			Email:         local + demoDomain,
			Phone:         phone,
			Password:      string(hashedPassword),
			FirstName:     first,
			LastName:      last,
			IsActive:      true,
			PhoneVerified: phone != "",
			Role:          role,
			LastSeen:      now,
			Settings: models.UserSettings{
				ShareLocation:        true,
				NotificationsEnabled: true,
				Language:             "en",
			},
			EmergencyContacts: []models.EmergencyContact{},
			CreatedAt:         now,
			UpdatedAt:         now,
		}
	}

	tourist := account("Maya", "Lindqvist", "tourist", "+46701234567", models.RoleUser)
	tourist.Nationality = "SE"
	tourist.EmergencyContacts = []models.EmergencyContact{
		{Name: "Erik Lindqvist", Phone: "+46709876543", Relationship: "sibling", IsPrimary: true},
	}

	docs := []interface{}{
		account("Ops", "Admin", "admin", "", models.RoleAdmin),
		account("Ravi", "Sharma", "responder", "+919812345678", models.RoleResponder),
		tourist,
	}

	_, err = usersCol.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to insert demo accounts: %w", err)
	}

	logrus.Infof("Created %d demo accounts (password demo1234)", len(docs))
	return nil
}

func seedDemoResponders(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Link the first unit to the responder account so it can move itself
	var responderAccount models.User
	err := db.Collection("users").FindOne(ctx, bson.M{"email": "responder" + demoDomain}).Decode(&responderAccount)
	if err != nil && err != mongo.ErrNoDocuments {
		return fmt.Errorf("failed to load responder account: %w", err)
	}

	now := time.Now()
	unit := func(name string, role models.ResponderRole, phone string, lat, lng float64) models.Responder {
		coordinate := models.Coordinate{Latitude: lat, Longitude: lng}
		return models.Responder{
			ID:         primitive.NewObjectID(),
			Name:       name,
			Role:       role,
			Phone:      phone,
			Coordinate: coordinate,
			Point:      models.NewGeoPoint(coordinate),
			Available:  true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	police := unit("Tajganj Police Post", models.ResponderPolice, "+915622331100", 27.1709, 78.0422)
	police.UserID = responderAccount.ID

	docs := []interface{}{
		police,
		unit("SN Medical Ambulance 4", models.ResponderAmbulance, "+915622260354", 27.1860, 78.0108),
		unit("Agra Fort Security Desk", models.ResponderSecurity, "+915622364512", 27.1795, 78.0211),
	}

	if _, err := db.Collection("responders").InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert demo responders: %w", err)
	}
	return nil
}

func seedDemoZones(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	center := models.Coordinate{Latitude: 27.1751, Longitude: 78.0421}

	docs := []interface{}{
		models.Geofence{
			ID:          primitive.NewObjectID(),
			Name:        "Yamuna Riverbank",
			Description: "Unlit riverbank with reported thefts after dark",
			Kind:        models.ZoneKindPolygon,
			ZoneType:    models.ZoneTypeRestricted,
			RiskLevel:   models.RiskHigh,
			Vertices: []models.Coordinate{
				{Latitude: 27.1790, Longitude: 78.0440},
				{Latitude: 27.1790, Longitude: 78.0520},
				{Latitude: 27.1740, Longitude: 78.0520},
				{Latitude: 27.1740, Longitude: 78.0440},
			},
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		models.Geofence{
			ID:           primitive.NewObjectID(),
			Name:         "Taj East Gate Market",
			Description:  "Crowded market, pickpocketing reported",
			Kind:         models.ZoneKindCircle,
			ZoneType:     models.ZoneTypeRisky,
			RiskLevel:    models.RiskMedium,
			Center:       &center,
			RadiusMeters: 350,
			IsActive:     true,
			CreatedAt:    now.Add(time.Second),
			UpdatedAt:    now.Add(time.Second),
		},
	}

	if _, err := db.Collection("zones").InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert demo zones: %w", err)
	}
	return nil
}
