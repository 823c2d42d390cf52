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

// TokenSigner issues identity tokens.
type TokenSigner interface {
	Sign(id auth.Identity) (string, error)
}

// RegisterInput carries an already validated sign-up request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	IssueToken(user *model.User) (string, error)
}

type authService struct {
	users  repository.UserRepository
	hasher auth.PasswordHasher
	tokens TokenSigner
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, hasher auth.PasswordHasher, tokens TokenSigner) AuthService {
	return &authService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// Register creates a new user with a hashed password.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check user existence: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrEmailExists
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = model.RoleUser
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hashed,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords yield
// the same ErrInvalidCredentials.
func (s *authService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInvalidCredentials
	}

	return user, nil
}

// IssueToken signs a token carrying the user's id, email and role.
func (s *authService) IssueToken(user *model.User) (string, error) {
	return s.tokens.Sign(auth.Identity{ID: user.ID, Email: user.Email, Role: user.Role})
}
