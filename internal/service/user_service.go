package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/anton-kx/timetable-api/internal/models"
	appErrors "github.com/anton-kx/timetable-api/pkg/errors"
)

type userStore interface {
	Ensure(ctx context.Context, userID int64) error
	SetActiveGroup(ctx context.Context, userID, groupID int64) error
	ActiveGroup(ctx context.Context, userID int64) (*models.Group, error)
}

type groupFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Group, error)
	FindByCode(ctx context.Context, code string) (*models.Group, error)
}

// UserService tracks chat users and which group each one follows.
type UserService struct {
	users  userStore
	groups groupFinder
	logger *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(users userStore, groups groupFinder, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, groups: groups, logger: logger}
}

// SelectGroup registers the user if needed and makes the given group their
// active selection.
func (s *UserService) SelectGroup(ctx context.Context, userID, groupID int64) (*models.Group, error) {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}

	if err := s.activate(ctx, userID, group); err != nil {
		return nil, err
	}
	return group, nil
}

// SelectGroupByCode resolves a group code (case-insensitive) and selects it.
func (s *UserService) SelectGroupByCode(ctx context.Context, userID int64, code string) (*models.Group, error) {
	group, err := s.groups.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if err := s.activate(ctx, userID, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *UserService) activate(ctx context.Context, userID int64, group *models.Group) error {
	if err := s.users.Ensure(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register user")
	}
	if err := s.users.SetActiveGroup(ctx, userID, group.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to select group")
	}
	s.logger.Info("user selected group", zap.Int64("user_id", userID), zap.String("group", group.Code))
	return nil
}

// ActiveGroup returns the user's current selection, or a typed not-found
// error when the user has never picked one.
func (s *UserService) ActiveGroup(ctx context.Context, userID int64) (*models.Group, error) {
	group, err := s.users.ActiveGroup(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selection")
	}
	if group == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no group selected")
	}
	return group, nil
}
