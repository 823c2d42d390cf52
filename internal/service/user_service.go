package service

import (
	"context"
	"fmt"
	"log/slog"

	"acquisitions/internal/auth"
	apperrors "acquisitions/internal/errors"
	"acquisitions/internal/model"
	"acquisitions/internal/repository"
)

// UserUpdate is a validated partial update. Nil fields are left unchanged.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
	Role     *model.Role
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// UserPage is one page of a user listing.
type UserPage struct {
	Users      []model.User `json:"users"`
	Pagination Pagination   `json:"pagination"`
}

// UserService exposes domain operations.
type UserService interface {
	ListUsers(ctx context.Context, params repository.ListParams) (*UserPage, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	UpdateUser(ctx context.Context, id uint, update UserUpdate) (*model.User, error)
	UpdateCurrentUser(ctx context.Context, id uint, update UserUpdate) (*model.User, error)
	DeleteUser(ctx context.Context, actorID, id uint) error
}

type userService struct {
	repo   repository.UserRepository
	hasher auth.PasswordHasher
}

// NewUserService builds a UserService over the repository.
func NewUserService(repo repository.UserRepository, hasher auth.PasswordHasher) UserService {
	return &userService{repo: repo, hasher: hasher}
}

func (s *userService) ListUsers(ctx context.Context, params repository.ListParams) (*UserPage, error) {
	users, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}

	return &UserPage{
		Users: users,
		Pagination: Pagination{
			Page:       params.Page,
			Limit:      params.Limit,
			Total:      total,
			TotalPages: totalPages(total, params.Limit),
		},
	}, nil
}

func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateUser applies an admin update. Email uniqueness is re-checked when the
// address changes, and a new password is hashed before it is stored.
func (s *userService) UpdateUser(ctx context.Context, id uint, update UserUpdate) (*model.User, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := repository.UserChanges{Name: update.Name, Role: update.Role}

	if update.Email != nil && *update.Email != existing.Email {
		taken, err := s.repo.FindByEmail(ctx, *update.Email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if taken != nil && taken.ID != id {
			return nil, apperrors.ErrEmailExists
		}
		changes.Email = update.Email
	}

	if update.Password != nil {
		hashed, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return nil, err
		}
		changes.PasswordHash = &hashed
	}

	updated, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		return nil, err
	}

	if update.Role != nil && *update.Role != existing.Role {
		slog.InfoContext(ctx, "user role changed", "user_id", id, "from", existing.Role, "to", *update.Role)
	}
	return updated, nil
}

// UpdateCurrentUser applies a self-service update; any role change is dropped.
func (s *userService) UpdateCurrentUser(ctx context.Context, id uint, update UserUpdate) (*model.User, error) {
	update.Role = nil
	return s.UpdateUser(ctx, id, update)
}

// DeleteUser removes a user on behalf of actorID, who may not delete themselves.
func (s *userService) DeleteUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return apperrors.ErrSelfDelete
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "user deleted", "user_id", id, "by", actorID)
	return nil
}

func totalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	l := int64(limit)
	return (total + l - 1) / l
}
