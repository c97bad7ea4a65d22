package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tasktracker/internal/auth"
	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

const testSecret = "dGVzdC1zZWNyZXQtdGVzdC1zZWNyZXQtdGVzdC1zZWNyZXQhIQ=="

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil && user.ID == 0 {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, page repository.PageRequest) ([]model.User, int64, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.User), args.Get(1).(int64), args.Error(2)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsRevoked(ctx context.Context, tokenID string) bool {
	args := m.Called(ctx, tokenID)
	return args.Bool(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	return tokens
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedEmail string
		expectedError error
	}{
		{
			name:     "successful registration",
			email:    "  New@Example.com ",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
			expectedEmail: "new@example.com",
		},
		{
			name:     "user already exists",
			email:    "existing@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "existing@example.com").Return(&model.User{ID: 3, Email: "existing@example.com"}, nil)
			},
			expectedError: apperrors.ErrUserAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			service := NewAuthService(mockRepo, newTokenService(t), new(MockTokenStore), bcrypt.MinCost, discardLogger())
			user, err := service.Register(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedEmail, user.Email)
				assert.Equal(t, model.RoleUser, user.Role)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(tt.password)))
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &model.User{ID: 7, Email: "test@example.com", PasswordHash: string(hashedPassword), Role: model.RoleAdmin}

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "Test@Example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(stored, nil)
			},
		},
		{
			name:     "wrong password",
			email:    "test@example.com",
			password: "wrong",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(stored, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)
			tokens := newTokenService(t)

			service := NewAuthService(mockRepo, tokens, new(MockTokenStore), bcrypt.MinCost, discardLogger())
			token, user, err := service.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, token)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, stored, user)

				principal, err := tokens.Validate(token)
				require.NoError(t, err)
				assert.Equal(t, auth.PrincipalFromUser(stored), principal)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	tokens := newTokenService(t)
	token, err := tokens.Issue(auth.Principal{UserID: 2, Email: "u2@example.com", Role: model.RoleUser}, nil)
	require.NoError(t, err)
	claims, err := tokens.Parse(token)
	require.NoError(t, err)

	store := new(MockTokenStore)
	store.On("Revoke", mock.Anything, claims.ID, mock.MatchedBy(func(ttl time.Duration) bool {
		return ttl > 0 && ttl <= time.Hour
	})).Return(nil)

	service := NewAuthService(new(MockUserRepository), tokens, store, bcrypt.MinCost, discardLogger())
	require.NoError(t, service.Logout(context.Background(), token))
	store.AssertExpectations(t)

	err = service.Logout(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrMalformedToken)
}
