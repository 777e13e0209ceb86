// config/db.go
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/gym_backend/models"
)

// OTPCollection stores signup and password reset codes for every role
const OTPCollection = "otps"

// ConnectDB establishes connection to MongoDB and makes sure the indexes exist
func ConnectDB(ctx context.Context, cfg MongoConfig, logger *logrus.Logger) (*mongo.Client, error) {
	logger.Infof("Connecting to MongoDB at: %s", maskMongoURI(cfg.URI))

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("Connected to MongoDB")

	if err := EnsureIndexes(context.Background(), client.Database(cfg.Database)); err != nil {
		return nil, err
	}
	logger.Info("Database collections and indexes setup complete")
	return client, nil
}

// EnsureIndexes creates the unique email index of every role collection and
// the OTP indexes. The TTL index has a zero offset so MongoDB deletes an OTP
// exactly at its expiresAt.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, role := range models.AllRoles {
		_, err := db.Collection(role.Collection()).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		})
		if err != nil {
			return fmt.Errorf("create email index for %s: %w", role.Collection(), err)
		}
	}

	otpIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
		},
		{
			Keys: bson.D{
				{Key: "email", Value: 1},
				{Key: "role", Value: 1},
				{Key: "purpose", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("email_role_purpose_unique"),
		},
	}
	if _, err := db.Collection(OTPCollection).Indexes().CreateMany(ctx, otpIndexes); err != nil {
		return fmt.Errorf("create otp indexes: %w", err)
	}
	return nil
}

// maskMongoURI masks the password in MongoDB URI for logging
func maskMongoURI(uri string) string {
	schemeEnd := strings.Index(uri, "://") + len("://")
	if idx := strings.LastIndex(uri, "@"); idx > schemeEnd {
		if colonIdx := strings.LastIndex(uri[:idx], ":"); colonIdx >= schemeEnd {
			return uri[:colonIdx+1] + "***" + uri[idx:]
		}
	}
	return uri
}
