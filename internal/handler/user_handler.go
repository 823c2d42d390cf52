package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"acquisitions/internal/auth"
	"acquisitions/internal/errors"
	"acquisitions/internal/model"
	"acquisitions/internal/repository"
	"acquisitions/internal/service"
	"acquisitions/internal/validation"
)

// UserHandler bundles HTTP handlers.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// UserResponse wraps a single user.
type UserResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// UserListResponse wraps a page of users.
type UserListResponse struct {
	Message    string             `json:"message"`
	Users      []model.User       `json:"users"`
	Pagination service.Pagination `json:"pagination"`
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (1-100)" default(10)
// @Param search query string false "Substring of name or email"
// @Param sortBy query string false "Sort column" Enums(id, name, email, role, created_at, updated_at)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} UserListResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	q, err := validation.BindListUsersQuery(c)
	if err != nil {
		return err
	}
	if err := c.Validate(&q); err != nil {
		return err
	}

	page, err := h.svc.ListUsers(c.Request().Context(), repository.ListParams{
		Page:      q.Page,
		Limit:     q.Limit,
		Search:    q.Search,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	})
	if err != nil {
		return err
	}

	slog.InfoContext(c.Request().Context(), "users fetched", "page", q.Page, "total", page.Pagination.Total)
	return c.JSON(http.StatusOK, UserListResponse{
		Message:    "Users fetched successfully",
		Users:      page.Users,
		Pagination: page.Pagination,
	})
}

// GetMe godoc
// @Summary Current user profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) GetMe(c echo.Context) error {
	id, ok := auth.IdentityFrom(c.Request().Context())
	if !ok {
		return errors.ErrAuthRequired
	}

	user, err := h.svc.GetUser(c.Request().Context(), id.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UserResponse{Message: "User profile fetched successfully", User: user})
}

// UpdateMe godoc
// @Summary Update current user profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body validation.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [patch]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	id, ok := auth.IdentityFrom(c.Request().Context())
	if !ok {
		return errors.ErrAuthRequired
	}

	var req validation.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return errors.ErrInvalidBody
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.svc.UpdateCurrentUser(c.Request().Context(), id.ID, service.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	slog.InfoContext(c.Request().Context(), "profile updated", "user_id", id.ID)
	return c.JSON(http.StatusOK, UserResponse{Message: "Profile updated successfully", User: user})
}

// GetUser godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return err
	}

	user, err := h.svc.GetUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UserResponse{Message: "User fetched successfully", User: user})
}

// UpdateUser godoc
// @Summary Update a user (admin)
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body validation.UpdateUserRequest true "Fields to change"
// @Success 200 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [patch]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return err
	}

	var req validation.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return errors.ErrInvalidBody
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.svc.UpdateUser(c.Request().Context(), userID, service.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}

	actor, _ := auth.IdentityFrom(c.Request().Context())
	slog.InfoContext(c.Request().Context(), "user updated by admin", "user_id", userID, "admin_id", actor.ID)
	return c.JSON(http.StatusOK, UserResponse{Message: "User updated successfully", User: user})
}

// DeleteUser godoc
// @Summary Delete a user (admin)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return err
	}

	actor, ok := auth.IdentityFrom(c.Request().Context())
	if !ok {
		return errors.ErrAuthRequired
	}

	if err := h.svc.DeleteUser(c.Request().Context(), actor.ID, userID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

func parseUserID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errors.ErrInvalidUserID
	}
	return uint(id), nil
}
