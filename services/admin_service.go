package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/gym_backend/models"
	"github.com/HSouheill/gym_backend/repositories"
)

type AdminStore interface {
	List(ctx context.Context, role models.Role, limit, skip int64) ([]models.User, int64, error)
	SetBlocked(ctx context.Context, role models.Role, id primitive.ObjectID, blocked bool) error
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// UserPage is one page of a user listing
type UserPage struct {
	Users    []models.User `json:"users"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// AdminService is used by super-admins to inspect and block accounts
type AdminService struct {
	users    AdminStore
	notifier Notifier
	logger   *logrus.Entry
}

func NewAdminService(users AdminStore, notifier Notifier, logger *logrus.Logger) *AdminService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &AdminService{
		users:    users,
		notifier: notifier,
		logger:   logger.WithField("component", "admin"),
	}
}

func (s *AdminService) ListUsers(ctx context.Context, role models.Role, page, pageSize int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	users, total, err := s.users.List(ctx, role, int64(pageSize), int64((page-1)*pageSize))
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Total: total, Page: page, PageSize: pageSize}, nil
}

// SetBlocked blocks or unblocks an account and tells its open sessions
func (s *AdminService) SetBlocked(ctx context.Context, actor *Claims, role models.Role, id primitive.ObjectID, blocked bool) error {
	if actor != nil && actor.Role == role && actor.UserID == id.Hex() {
		return ValidationError("You cannot block your own account")
	}

	if err := s.users.SetBlocked(ctx, role, id, blocked); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	reason := ReasonUnblocked
	if blocked {
		reason = ReasonBlocked
	}
	s.notifier.NotifyAuthChange(id.Hex(), reason)

	entry := s.logger.WithFields(logrus.Fields{
		"role":    role.String(),
		"userId":  id.Hex(),
		"blocked": blocked,
	})
	if actor != nil {
		entry = entry.WithField("actorId", actor.UserID)
	}
	entry.Info("Account block status changed")
	return nil
}
