package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tasktracker/internal/auth"
	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (token string, user *model.User, err error)
	Logout(ctx context.Context, token string) error
}

type authService struct {
	userRepo   repository.UserRepository
	tokens     *auth.TokenService
	tokenStore auth.TokenStoreInterface
	bcryptCost int
	now        func() time.Time
	logger     *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	tokens *auth.TokenService,
	tokenStore auth.TokenStoreInterface,
	bcryptCost int,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		tokens:     tokens,
		tokenStore: tokenStore,
		bcryptCost: bcryptCost,
		now:        time.Now,
		logger:     logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a USER account with a hashed password.
func (s *authService) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         model.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies the password and issues a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *authService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, apperrors.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("login rejected", "user_id", user.ID)
		return "", nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.PrincipalFromUser(user), nil)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, user, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.tokenStore.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info("token revoked", "user_id", claims.UserID)
	return nil
}
