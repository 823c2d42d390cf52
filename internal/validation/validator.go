// Package validation defines the accepted request shapes and turns
// validator failures into deterministic, human-readable messages.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "acquisitions/internal/errors"
	"acquisitions/internal/model"
)

// normalizer is implemented by requests that trim or lowercase input before
// it is checked.
type normalizer interface {
	normalize()
}

// Validator implements echo.Validator on top of go-playground/validator.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator with the request shapes of this package registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	v.RegisterStructValidation(requireAnyField, UpdateProfileRequest{}, UpdateUserRequest{})
	_ = v.RegisterValidation("role", assignableRole)
	return &Validator{validate: v}
}

// Validate normalizes i when supported and checks it. Failures are returned
// as *errors.ValidationError.
func (cv *Validator) Validate(i interface{}) error {
	if n, ok := i.(normalizer); ok {
		n.normalize()
	}

	err := cv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, messageFor(fe))
	}
	return apperrors.NewValidationError(messages...)
}

// assignableRole accepts roles a user row may hold.
func assignableRole(fl validator.FieldLevel) bool {
	_, ok := model.ParseRole(fl.Field().String())
	return ok
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "query"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return fld.Name
}

// messages maps "<field>.<tag>" (or a bare tag) to the text shown to clients.
var messages = map[string]string{
	"name.required":     "Name is required",
	"name.min":          "Name is required",
	"name.max":          "Name must be less than 255 characters",
	"email.required":    "Email is required",
	"email.email":       "Invalid email format",
	"email.max":         "Email must be less than 255 characters",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters",
	"password.max":      "Password must be less than 128 characters",
	"role.role":         "Invalid role",
	"page.min":          "Page must be a positive integer",
	"limit.min":         "Limit must be between 1 and 100",
	"limit.max":         "Limit must be between 1 and 100",
	"search.max":        "Search must be less than 255 characters",
	"sortOrder.oneof":   "Sort order must be either asc or desc",
	"atleastone":        "At least one field must be provided for update",
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := messages[fe.Tag()]; ok {
		return msg
	}
	return invalid(fieldPath(fe.Namespace()))
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func invalid(path string) string {
	return path + " is invalid"
}
