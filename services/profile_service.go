package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/gym_backend/models"
	"github.com/HSouheill/gym_backend/repositories"
	"github.com/HSouheill/gym_backend/utils"
)

type ProfileStore interface {
	FindByID(ctx context.Context, role models.Role, id primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, role models.Role, id primitive.ObjectID, update models.ProfileUpdate) (*models.User, error)
	UpdateProfilePicture(ctx context.Context, role models.Role, id primitive.ObjectID, url string) error
}

// ProfileService edits the profile of the logged-in user
type ProfileService struct {
	users   ProfileStore
	storage Storage
	logger  *logrus.Entry
}

func NewProfileService(users ProfileStore, storage Storage, logger *logrus.Logger) *ProfileService {
	return &ProfileService{
		users:   users,
		storage: storage,
		logger:  logger.WithField("component", "profile"),
	}
}

func claimsUserID(claims *Claims) (primitive.ObjectID, error) {
	if claims == nil {
		return primitive.NilObjectID, ErrUnauthorized
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID, ErrUnauthorized
	}
	return id, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, claims *Claims, update models.ProfileUpdate) (*models.User, error) {
	id, err := claimsUserID(claims)
	if err != nil {
		return nil, err
	}
	if update.Empty() {
		return nil, ValidationError("Nothing to update")
	}

	if update.FullName != nil {
		name := utils.SanitizeInput(*update.FullName)
		if name == "" {
			return nil, ValidationError("Full name cannot be empty")
		}
		update.FullName = &name
	}
	if update.Phone != nil {
		phone, err := utils.SanitizePhone(*update.Phone)
		if err != nil {
			return nil, ValidationError("Invalid phone number format")
		}
		update.Phone = &phone
	}

	user, err := s.users.UpdateProfile(ctx, claims.Role, id, update)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// UploadAvatar crops and resizes an uploaded image into a square JPEG, stores
// it and points the profile at it.
func (s *ProfileService) UploadAvatar(ctx context.Context, claims *Claims, filename string, data []byte, crop *utils.CropRect) (*models.User, error) {
	id, err := claimsUserID(claims)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateImageFile(filename, int64(len(data))); err != nil {
		return nil, ValidationError(err.Error())
	}

	avatar, err := utils.ProcessAvatar(data, crop, utils.AvatarSize)
	if err != nil {
		return nil, ValidationError(err.Error())
	}

	key := fmt.Sprintf("avatars/%s/%s/%s.jpg", strings.ReplaceAll(claims.Role.String(), "-", "_"), id.Hex(), uuid.NewString())
	url, err := s.storage.Put(ctx, key, avatar, "image/jpeg")
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateProfilePicture(ctx, claims.Role, id, url); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"role":   claims.Role.String(),
		"userId": id.Hex(),
	}).Info("Avatar updated")

	user, err := s.users.FindByID(ctx, claims.Role, id)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}
