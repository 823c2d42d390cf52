package errors

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidBody is returned when the request body is not a JSON object.
	ErrInvalidBody = errors.New("request body is required and must be a valid JSON object")
	// ErrInvalidUserID is returned when a :id route parameter is not numeric.
	ErrInvalidUserID = errors.New("user ID must be a valid number")
	// ErrUserNotFound is returned when a user row does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned when an email is already taken by another account.
	ErrEmailExists = errors.New("email already exists")
	// ErrInvalidCredentials is returned for both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSelfDelete is returned when an admin targets their own account for deletion.
	ErrSelfDelete = errors.New("you cannot delete your own account")
	// ErrTokenMissing is returned when a protected route receives no token.
	ErrTokenMissing = errors.New("authentication token is required")
	// ErrTokenRejected is returned when a token fails verification, for any reason.
	ErrTokenRejected = errors.New("invalid or expired token")
	// ErrAuthRequired is returned when a guard runs without an authenticated identity.
	ErrAuthRequired = errors.New("authentication required")
	// ErrForbidden is returned when the caller's role is not allowed.
	ErrForbidden = errors.New("you do not have permission to access this resource")
	// ErrNotOwner is returned when a non-admin targets another user's resource.
	ErrNotOwner = errors.New("you can only access your own resources")
	// ErrRouteNotFound is returned for unmatched routes.
	ErrRouteNotFound = errors.New("the requested resource was not found")
	// ErrProtection is returned when the security middleware itself fails.
	ErrProtection = errors.New("security middleware failure")
	// ErrHashing is returned when hashing or verifying a password fails internally.
	ErrHashing = errors.New("password hashing failed")
)

// ValidationError carries one human-readable message per violated field.
type ValidationError struct {
	Messages []string
}

// NewValidationError builds a ValidationError from the given messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return ErrValidation.Error()
	}
	return strings.Join(e.Messages, ", ")
}

// Is makes errors.Is(err, ErrValidation) hold for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Title      string
	Message    string
	Details    string
	Code       string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Title
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, title, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Title:      title,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Title,
		Message: e.Message,
		Details: e.Details,
		Code:    e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Anything outside the
// taxonomy becomes a generic 500.
func MapErrorToHTTP(err error) *HTTPError {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpErr := NewHTTPError(http.StatusBadRequest, "Validation failed", "", "VALIDATION_FAILED")
		httpErr.Details = verr.Error()
		return httpErr
	case errors.Is(err, ErrInvalidBody):
		httpErr := NewHTTPError(http.StatusBadRequest, "Validation failed", "", "INVALID_BODY")
		httpErr.Details = "Request body is required and must be a valid JSON object"
		return httpErr
	case errors.Is(err, ErrInvalidUserID):
		return NewHTTPError(http.StatusBadRequest, "Invalid user ID", "User ID must be a valid number", "INVALID_USER_ID")
	case errors.Is(err, ErrEmailExists):
		return NewHTTPError(http.StatusBadRequest, "Email already exists", "", "EMAIL_EXISTS")
	case errors.Is(err, ErrSelfDelete):
		return NewHTTPError(http.StatusBadRequest, "Bad Request", "You cannot delete your own account", "SELF_DELETE")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, "Invalid credentials", "", "INVALID_CREDENTIALS")
	case errors.Is(err, ErrTokenMissing):
		return NewHTTPError(http.StatusUnauthorized, "Unauthorized", "Authentication token is required", "TOKEN_MISSING")
	case errors.Is(err, ErrTokenRejected):
		return NewHTTPError(http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", "TOKEN_INVALID")
	case errors.Is(err, ErrAuthRequired):
		return NewHTTPError(http.StatusUnauthorized, "Unauthorized", "Authentication required", "AUTH_REQUIRED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, "Forbidden", "You do not have permission to access this resource", "FORBIDDEN")
	case errors.Is(err, ErrNotOwner):
		return NewHTTPError(http.StatusForbidden, "Forbidden", "You can only access your own resources", "NOT_OWNER")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, "User not found", "", "USER_NOT_FOUND")
	case errors.Is(err, ErrRouteNotFound):
		return NewHTTPError(http.StatusNotFound, "Not Found", "The requested resource was not found.", "NOT_FOUND")
	case errors.Is(err, ErrProtection):
		return NewHTTPError(http.StatusInternalServerError, "Internal server error", "Something went wrong with security middleware", "PROTECTION_FAILED")
	default:
		return NewHTTPError(http.StatusInternalServerError, "Internal server error", "Something went wrong", "INTERNAL_ERROR")
	}
}
