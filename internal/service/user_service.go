package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"tasktracker/internal/cache"
	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// UserService exposes user lookups.
type UserService interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, page repository.PageRequest) (model.Page[model.User], error)
}

type userService struct {
	repo   repository.UserRepository
	cache  *cache.Client
	logger *slog.Logger
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client, logger *slog.Logger) UserService {
	return &userService{repo: repo, cache: cache, logger: logger}
}

func (s *userService) cacheKey(email string) string {
	return fmt.Sprintf("user:%s", strings.ToLower(email))
}

// GetUserByEmail resolves a user, preferring the cache. Cached records
// never carry the password hash.
func (s *userService) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, s.cacheKey(email), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: email %s", apperrors.ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	s.logger.Debug("user loaded", "user_id", user.ID)

	_ = s.cache.SetJSON(ctx, s.cacheKey(email), user, userCacheTTL)
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, page repository.PageRequest) (model.Page[model.User], error) {
	users, total, err := s.repo.List(ctx, page)
	if err != nil {
		return model.Page[model.User]{}, fmt.Errorf("list users: %w", err)
	}
	return model.NewPage(users, page.Page, page.Size, total), nil
}
