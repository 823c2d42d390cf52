package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"acquisitions/internal/model"
)

// SignUpRequest is the body of POST /auth/signup.
type SignUpRequest struct {
	Name     string     `json:"name" validate:"required,max=255"`
	Email    string     `json:"email" validate:"required,email,max=255"`
	Password string     `json:"password" validate:"required,min=6,max=128"`
	Role     model.Role `json:"role" validate:"omitempty,role"`
}

func (r *SignUpRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	if r.Role == "" {
		r.Role = model.RoleUser
	}
}

// SignInRequest is the body of POST /auth/signin.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

func (r *SignInRequest) normalize() {
	r.Email = NormalizeEmail(r.Email)
}

// UpdateProfileRequest is the body of PATCH /users/me. Role is not part of
// the shape, so a role sent by the caller never reaches the service.
type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitnil,min=1,max=255"`
	Email    *string `json:"email" validate:"omitnil,email,max=255"`
	Password *string `json:"password" validate:"omitnil,min=6,max=128"`
}

func (r *UpdateProfileRequest) normalize() {
	trimPtr(r.Name)
	normalizeEmailPtr(r.Email)
}

// UpdateUserRequest is the body of PATCH /users/:id.
type UpdateUserRequest struct {
	Name     *string     `json:"name" validate:"omitnil,min=1,max=255"`
	Email    *string     `json:"email" validate:"omitnil,email,max=255"`
	Password *string     `json:"password" validate:"omitnil,min=6,max=128"`
	Role     *model.Role `json:"role" validate:"omitnil,role"`
}

func (r *UpdateUserRequest) normalize() {
	trimPtr(r.Name)
	normalizeEmailPtr(r.Email)
}

// NormalizeEmail trims and lowercases an address for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func normalizeEmailPtr(s *string) {
	if s != nil {
		*s = NormalizeEmail(*s)
	}
}

func requireAnyField(sl validator.StructLevel) {
	empty := false
	switch req := sl.Current().Interface().(type) {
	case UpdateProfileRequest:
		empty = req.Name == nil && req.Email == nil && req.Password == nil
	case UpdateUserRequest:
		empty = req.Name == nil && req.Email == nil && req.Password == nil && req.Role == nil
	}
	if empty {
		sl.ReportError(nil, "body", "body", "atleastone", "")
	}
}
