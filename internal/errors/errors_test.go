package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"user not found", ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
		{"wrapped task not found", fmt.Errorf("load task 5: %w", ErrTaskNotFound), http.StatusNotFound, "TASK_NOT_FOUND"},
		{"access denied", fmt.Errorf("%w: user 3 is not the assignee", ErrAccessDenied), http.StatusForbidden, "ACCESS_DENIED"},
		{"unsupported role", ErrUnsupportedRole, http.StatusForbidden, "UNSUPPORTED_ROLE"},
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"expired token", ErrTokenExpired, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"bad signature", ErrInvalidSignature, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"duplicate user", ErrUserAlreadyExists, http.StatusConflict, "USER_ALREADY_EXISTS"},
		{"validation", fmt.Errorf("%w: unknown status", ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.expectedStatus, httpErr.StatusCode)
			assert.Equal(t, tt.expectedCode, httpErr.ToErrorResponse().Code)
		})
	}
}

func TestMapErrorToHTTP_HidesInternalMessages(t *testing.T) {
	httpErr := MapErrorToHTTP(errors.New("dial tcp 10.0.0.3:3306: refused"))
	assert.Equal(t, "internal server error", httpErr.Message)
}
