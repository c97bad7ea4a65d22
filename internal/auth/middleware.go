package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
)

// UserLookup loads the current record for a token subject.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// Resolver turns a bearer token into a Principal.
type Resolver struct {
	tokens  *TokenService
	users   UserLookup
	revoked TokenStoreInterface
	logger  *slog.Logger
}

// NewResolver creates a resolver. revoked may be nil to skip revocation checks.
func NewResolver(tokens *TokenService, users UserLookup, revoked TokenStoreInterface, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		tokens:  tokens,
		users:   users,
		revoked: revoked,
		logger:  logger,
	}
}

// Resolve extracts the subject, loads that user and then checks the token
// is still valid for the loaded record. The principal reflects the stored
// role, not the role embedded at issue time.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Principal, error) {
	email, err := r.tokens.ExtractUsername(token)
	if err != nil {
		return nil, err
	}

	user, err := r.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load token subject: %w", err)
	}

	claims, err := r.tokens.ValidateFor(token, user.Email)
	if err != nil {
		return nil, err
	}

	if r.revoked != nil && r.revoked.IsRevoked(ctx, claims.ID) {
		return nil, apperrors.ErrTokenRevoked
	}

	p := PrincipalFromUser(user)
	return &p, nil
}

// Middleware attaches a principal to requests carrying a valid bearer token.
// Requests without one, or with a token that fails resolution, continue
// anonymously; route gates decide whether that is acceptable.
func (r *Resolver) Middleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  PrincipalContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return r.Resolve(c.Request().Context(), auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			r.logger.Debug("request continues anonymously", "path", c.Path(), "reason", err.Error())
			return nil
		},
		ContinueOnIgnoredError: true,
	})
}

// RequireRole rejects anonymous requests with 401 and requests whose
// principal holds none of roles with 403. With no roles, any principal passes.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
					Error: "authentication required",
					Code:  "UNAUTHENTICATED",
				})
			}
			if len(roles) == 0 {
				return next(c)
			}
			for _, role := range roles {
				if p.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, apperrors.ErrorResponse{
				Error: "insufficient role",
				Code:  "ACCESS_DENIED",
			})
		}
	}
}

// RequireAuthenticated rejects anonymous requests.
func RequireAuthenticated() echo.MiddlewareFunc {
	return RequireRole()
}
