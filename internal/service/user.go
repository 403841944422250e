package service

import (
	"context"
	"errors"

	"github.com/iliyamo/car-rental/internal/apperror"
	"github.com/iliyamo/car-rental/internal/model"
	"github.com/iliyamo/car-rental/internal/repository"
)

var (
	ErrInvalidRole  = apperror.Validation("invalid role")
	ErrSelfRole     = apperror.Validation("you cannot change your own role")
	ErrUserNotFound = apperror.NotFound("user not found")
)

// UserService covers ADMIN-only user management.
type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService { return &UserService{users: users} }

// ChangeRole sets target's role.  The actor may not change their own role;
// both checks run before anything is written.
func (s *UserService) ChangeRole(ctx context.Context, actorID, targetID, role string) (*model.User, error) {
	r, ok := model.ParseRole(role)
	if !ok {
		return nil, ErrInvalidRole
	}
	if actorID == targetID {
		return nil, ErrSelfRole
	}
	u, err := s.users.GetByID(ctx, targetID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if err := s.users.UpdateRole(ctx, targetID, r); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperror.Internal(err)
	}
	u.Role = r
	return u, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return users, nil
}
