package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrTaskNotFound is returned when a task does not exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrAccessDenied is returned when the acting user may not modify the task.
	ErrAccessDenied = errors.New("access denied")
	// ErrUnsupportedRole is returned when the acting user's role has no write policy.
	ErrUnsupportedRole = errors.New("unsupported role")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserAlreadyExists is returned when registering an email that is taken.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrMalformedToken is returned when a token cannot be parsed.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidSignature is returned when a token signature does not verify.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrSubjectMismatch is returned when a token was issued for a different user.
	ErrSubjectMismatch = errors.New("token subject mismatch")
	// ErrTokenRevoked is returned for tokens invalidated by logout.
	ErrTokenRevoked = errors.New("token revoked")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// IsTokenError reports whether err came from token validation.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrMalformedToken) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrSubjectMismatch) ||
		errors.Is(err, ErrTokenRevoked)
}

// MapErrorToHTTP maps domain errors, possibly wrapped, to HTTP errors.
// The full wrapped message is kept so callers see which lookup failed.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrTaskNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "TASK_NOT_FOUND")
	case errors.Is(err, ErrAccessDenied):
		return NewHTTPError(http.StatusForbidden, err.Error(), "ACCESS_DENIED")
	case errors.Is(err, ErrUnsupportedRole):
		return NewHTTPError(http.StatusForbidden, err.Error(), "UNSUPPORTED_ROLE")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case IsTokenError(err):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_TOKEN")
	case errors.Is(err, ErrUserAlreadyExists):
		return NewHTTPError(http.StatusConflict, err.Error(), "USER_ALREADY_EXISTS")
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
