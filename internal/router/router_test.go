package router

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/auth"
	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/handler"
	"tasktracker/internal/model"
)

type staticUsers map[string]*model.User

func (s staticUsers) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := s[email]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func TestRegister_Gates(t *testing.T) {
	tokens, err := auth.NewTokenService("dGVzdC1zZWNyZXQtdGVzdC1zZWNyZXQtdGVzdC1zZWNyZXQhIQ==", time.Hour)
	require.NoError(t, err)
	user := &model.User{ID: 2, Email: "u2@example.com", Role: model.RoleUser}
	userToken, err := tokens.Issue(auth.PrincipalFromUser(user), nil)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := auth.NewResolver(tokens, staticUsers{user.Email: user}, nil, logger)

	e := echo.New()
	Register(e, logger, resolver, Handlers{
		Auth: handler.NewAuthHandler(nil),
		User: handler.NewUserHandler(nil),
		Task: handler.NewTaskHandler(nil),
	})

	tests := []struct {
		name           string
		method         string
		target         string
		token          string
		body           string
		expectedStatus int
	}{
		{"health", http.MethodGet, "/healthz", "", "", http.StatusOK},
		{"tasks anonymous", http.MethodGet, "/api/tasks", "", "", http.StatusUnauthorized},
		{"tasks bad token", http.MethodGet, "/api/tasks/1", "junk", "", http.StatusUnauthorized},
		{"admin as user", http.MethodGet, "/api/admin/users", userToken, "", http.StatusForbidden},
		{"delete as user", http.MethodDelete, "/api/admin/tasks/1", userToken, "", http.StatusForbidden},
		{"me anonymous", http.MethodGet, "/api/me", "", "", http.StatusUnauthorized},
		{"me as user", http.MethodGet, "/api/me", userToken, "", http.StatusOK},
		{"login validates body", http.MethodPost, "/api/auth/login", "", `{"email":"nope"}`, http.StatusBadRequest},
		{"logout without token", http.MethodPost, "/api/auth/logout", "", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			}
			if tt.token != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}
