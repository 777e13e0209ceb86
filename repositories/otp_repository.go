package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/gym_backend/models"
)

// OTPRepository keeps at most one live OTP per (email, role, purpose).
// Physical expiry is left to the TTL index on expiresAt.
type OTPRepository struct {
	collection *mongo.Collection
}

func NewOTPRepository(db *mongo.Database, collection string) *OTPRepository {
	return &OTPRepository{collection: db.Collection(collection)}
}

func otpKey(email, role string, purpose models.OTPPurpose) bson.M {
	return bson.M{"email": email, "role": role, "purpose": purpose}
}

// Save replaces whatever OTP was issued before for the same key
func (r *OTPRepository) Save(ctx context.Context, otp *models.OTP) error {
	otp.ID = primitive.NilObjectID
	res, err := r.collection.ReplaceOne(ctx,
		otpKey(otp.Email, otp.Role, otp.Purpose),
		otp,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		otp.ID = oid
	}
	return nil
}

func (r *OTPRepository) FindLatest(ctx context.Context, email, role string, purpose models.OTPPurpose) (*models.OTP, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var otp models.OTP
	if err := r.collection.FindOne(ctx, otpKey(email, role, purpose), opts).Decode(&otp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find otp: %w", err)
	}
	return &otp, nil
}

// Consume deletes the OTP only if it still holds the given code. It reports
// false when another request consumed or replaced it first.
func (r *OTPRepository) Consume(ctx context.Context, id primitive.ObjectID, code string) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "otp": code})
	if err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	return res.DeletedCount == 1, nil
}

func (r *OTPRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}
