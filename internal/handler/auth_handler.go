package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"acquisitions/internal/auth"
	"acquisitions/internal/errors"
	"acquisitions/internal/model"
	"acquisitions/internal/service"
	"acquisitions/internal/validation"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	session     *auth.SessionCarrier
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, session *auth.SessionCarrier) *AuthHandler {
	return &AuthHandler{authService: authService, session: session}
}

// UserSummary is the public part of a user returned by auth endpoints.
type UserSummary struct {
	ID    uint       `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// AuthResponse represents an authentication response.
type AuthResponse struct {
	Message string      `json:"message"`
	User    UserSummary `json:"user"`
}

// MessageResponse carries a single message.
type MessageResponse struct {
	Message string `json:"message"`
}

func summarize(u *model.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// SignUp godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validation.SignUpRequest true "Registration data"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req validation.SignUpRequest
	if err := c.Bind(&req); err != nil {
		return errors.ErrInvalidBody
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}

	slog.InfoContext(c.Request().Context(), "user registered", "user_id", user.ID)
	return c.JSON(http.StatusCreated, AuthResponse{
		Message: "User registered successfully",
		User:    summarize(user),
	})
}

// SignIn godoc
// @Summary Sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validation.SignInRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req validation.SignInRequest
	if err := c.Bind(&req); err != nil {
		return errors.ErrInvalidBody
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authService.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}

	slog.InfoContext(c.Request().Context(), "user signed in", "user_id", user.ID)
	return c.JSON(http.StatusOK, AuthResponse{
		Message: "User signed in successfully",
		User:    summarize(user),
	})
}

// SignOut godoc
// @Summary Sign out
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /auth/signout [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	h.session.Clear(c)
	return c.JSON(http.StatusOK, MessageResponse{Message: "User signed out successfully"})
}

func (h *AuthHandler) startSession(c echo.Context, user *model.User) error {
	token, err := h.authService.IssueToken(user)
	if err != nil {
		return err
	}
	h.session.Set(c, token)
	return nil
}
