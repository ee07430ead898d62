package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer   = "shopadmin"
	defaultTokenTTL = 24 * time.Hour
)

var errMissingSecret = errors.New("auth: token secret is not configured")

// Claims represents the JWT claims carried by a session token.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies stateless HS256 session tokens. The
// secret is fixed for the lifetime of the service; rotating it means
// building a new service, which invalidates every outstanding token.
type TokenService struct {
	secret     []byte
	issuer     string
	defaultTTL time.Duration
	now        func() time.Time
}

// TokenOption configures TokenService behaviour.
type TokenOption func(*TokenService)

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService builds a token service. defaultTTL applies when Issue is
// called without an explicit lifetime.
func NewTokenService(secret string, defaultTTL time.Duration, opts ...TokenOption) (*TokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errMissingSecret
	}
	if defaultTTL <= 0 {
		defaultTTL = defaultTokenTTL
	}
	s := &TokenService{
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for accountID carrying role. It does not touch storage.
func (s *TokenService) Issue(accountID string, role Role, ttl time.Duration) (string, time.Time, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", time.Time{}, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	if !role.Valid() {
		return "", time.Time{}, fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, role)
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := s.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks the signature, expiry and claim shape of token. Failures
// are ErrInvalidSignature, ErrTokenExpired or ErrMalformedToken, all of
// which match ErrInvalidToken.
func (s *TokenService) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrMalformedToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Identity{}, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return Identity{}, ErrTokenExpired
		default:
			return Identity{}, ErrMalformedToken
		}
	}
	if err := validateClaims(&claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return Identity{AccountID: claims.Subject, Role: claims.Role}, nil
}

func validateClaims(claims *Claims) error {
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if !claims.Role.Valid() {
		return fmt.Errorf("unexpected role %q", claims.Role)
	}
	if claims.IssuedAt == nil {
		return errors.New("issued-at missing")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	return nil
}
