package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
)

// MinKeyBytes is the smallest HMAC-SHA256 key accepted.
const MinKeyBytes = 32

// ErrWeakSecret is returned when the configured secret decodes to a short key.
var ErrWeakSecret = errors.New("jwt secret must decode to at least 32 bytes")

// Claims represents JWT claims.
type Claims struct {
	UserID uint       `json:"uid"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal returns the identity carried by the claims.
func (c *Claims) Principal() Principal {
	return Principal{
		UserID: c.UserID,
		Email:  c.Subject,
		Role:   c.Role,
	}
}

// TokenService issues and validates HS256 identity tokens.
// Validation is stateless and safe for concurrent use.
type TokenService struct {
	key      []byte
	lifetime time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// Option configures a TokenService.
type Option func(*TokenService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService decodes the base64 secret and returns a service issuing
// tokens valid for lifetime.
func NewTokenService(secret string, lifetime time.Duration, opts ...Option) (*TokenService, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("decode jwt secret: %w", err)
	}
	if len(key) < MinKeyBytes {
		return nil, ErrWeakSecret
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("jwt lifetime must be positive, got %s", lifetime)
	}

	s := &TokenService{
		key:      key,
		lifetime: lifetime,
		now:      time.Now,
		// exp is checked in Parse against s.now
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Lifetime returns how long issued tokens stay valid.
func (s *TokenService) Lifetime() time.Duration {
	return s.lifetime
}

// Issue signs a token for p. Extra claims are embedded as given; the
// registered names and the identity claims always win over them.
func (s *TokenService) Issue(p Principal, extra map[string]interface{}) (string, error) {
	now := s.now()

	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	claims["sub"] = p.Email
	claims["uid"] = p.UserID
	claims["role"] = string(p.Role)
	claims["jti"] = uuid.New().String()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(s.lifetime).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies structure, signature and expiry and returns the claims.
// A bad signature is reported even when the token is also expired.
func (s *TokenService) Parse(tokenString string) (*Claims, error) {
	claims, err := s.verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp claim", apperrors.ErrMalformedToken)
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return nil, apperrors.ErrTokenExpired
	}
	return claims, nil
}

// Validate resolves a token to the principal it was issued for.
func (s *TokenService) Validate(tokenString string) (Principal, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return Principal{}, err
	}
	return claims.Principal(), nil
}

// ExtractUsername returns the subject of a correctly signed token without
// checking freshness, so callers can load the user before full validation.
func (s *TokenService) ExtractUsername(tokenString string) (string, error) {
	claims, err := s.verify(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing sub claim", apperrors.ErrMalformedToken)
	}
	return claims.Subject, nil
}

// ValidateFor fully validates the token and checks it was issued to email.
func (s *TokenService) ValidateFor(tokenString, email string) (*Claims, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Subject != email {
		return nil, apperrors.ErrSubjectMismatch
	}
	return claims, nil
}

func (s *TokenService) verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return claims, nil
}

func classify(err error) error {
	if errors.Is(err, jwt.ErrTokenMalformed) {
		return fmt.Errorf("%w: %v", apperrors.ErrMalformedToken, err)
	}
	// Signature mismatches, disallowed algorithms and unverifiable tokens.
	return fmt.Errorf("%w: %v", apperrors.ErrInvalidSignature, err)
}
