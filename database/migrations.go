package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          func(*mongo.Database) error
	Down        func(*mongo.Database) error
}

// migrationRecord tracks applied migrations
type migrationRecord struct {
	Version   int       `bson:"version"`
	AppliedAt time.Time `bson:"appliedAt"`
}

// migrations contains all database migrations
var migrations = []Migration{
	{
		Version:     1,
		Description: "Create users collection with indexes",
		Up:          createUsersCollection,
	},
	{
		Version:     2,
		Description: "Create locations collection with geo and retention indexes",
		Up:          createLocationsCollection,
	},
	{
		Version:     3,
		Description: "Create alerts collection with indexes",
		Up:          createAlertsCollection,
	},
	{
		Version:     4,
		Description: "Create zones collection with indexes",
		Up:          createZonesCollection,
	},
	{
		Version:     5,
		Description: "Create responders collection with geo index",
		Up:          createRespondersCollection,
	},
	{
		Version:     6,
		Description: "Create notifications collection with indexes",
		Up:          createNotificationsCollection,
	},
	{
		Version:     7,
		Description: "Create consents collection with indexes",
		Up:          createConsentsCollection,
	},
	{
		Version:     8,
		Description: "Create digital IDs collection with unique indexes",
		Up:          createDigitalIDsCollection,
	},
}

// RunMigrations executes all pending migrations
func RunMigrations(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Ensure migrations collection exists
	migrationsCol := db.Collection("migrations")

	// Get current migration version
	currentVersion := getCurrentMigrationVersion(ctx, migrationsCol)
	logrus.Infof("📋 Current migration version: %d", currentVersion)

	// Run pending migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		logrus.Infof("🔄 Running migration %d: %s", migration.Version, migration.Description)

		if err := migration.Up(db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		// Record successful migration
		_, err := migrationsCol.InsertOne(ctx, migrationRecord{
			Version:   migration.Version,
			AppliedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		logrus.Infof("✅ Migration %d completed", migration.Version)
	}

	return nil
}

// getCurrentMigrationVersion returns the current migration version
func getCurrentMigrationVersion(ctx context.Context, col *mongo.Collection) int {
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	var record migrationRecord
	err := col.FindOne(ctx, bson.D{}, opts).Decode(&record)
	if err != nil {
		return 0 // No migrations applied yet
	}
	return record.Version
}

// Individual migration functions

func createIndexes(db *mongo.Database, collection string, indexes []mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes)
	return err
}

func createUsersCollection(db *mongo.Database) error {
	return createIndexes(db, "users", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// phone is optional at registration and stored as ""
			Keys: bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"phone": bson.M{"$gt": ""}}),
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}, {Key: "isActive", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: 1}},
		},
	})
}

func createLocationsCollection(db *mongo.Database) error {
	return createIndexes(db, "locations", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "point", Value: "2dsphere"}},
		},
		{
			// hard ceiling; the cleanup worker enforces the configured retention
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 3600),
		},
		{
			Keys: bson.D{{Key: "zoneId", Value: 1}},
		},
	})
}

func createAlertsCollection(db *mongo.Database) error {
	return createIndexes(db, "alerts", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "type", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "point", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{{Key: "responders.responderId", Value: 1}},
		},
	})
}

func createZonesCollection(db *mongo.Database) error {
	return createIndexes(db, "zones", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "createdAt", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "riskLevel", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "updatedAt", Value: -1}},
		},
	})
}

func createRespondersCollection(db *mongo.Database) error {
	return createIndexes(db, "responders", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "point", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}, {Key: "available", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
}

func createNotificationsCollection(db *mongo.Database) error {
	return createIndexes(db, "notifications", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isRead", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "isRead", Value: 1}, {Key: "readAt", Value: 1}},
		},
	})
}

func createConsentsCollection(db *mongo.Database) error {
	return createIndexes(db, "consents", []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "type", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})
}

func createDigitalIDsCollection(db *mongo.Database) error {
	return createIndexes(db, "digital_ids", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "documentNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
}
