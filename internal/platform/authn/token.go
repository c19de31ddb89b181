// Package authn verifies bearer session tokens and scopes requests to the
// authenticated user.
package authn

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/louisbranch/kalori/internal/platform/errors"
)

const minKeyBytes = 32

// Config holds the HS256 verification settings shared with the identity
// provider that mints session tokens.
type Config struct {
	Issuer string
	Key    []byte
	Now    func() time.Time
}

// Claims is the verified identity carried by a session token.
type Claims struct {
	UserID    string
	Issuer    string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// Verifier validates session tokens.
type Verifier struct {
	cfg Config
}

// NewVerifier builds a verifier, rejecting weak or missing configuration.
func NewVerifier(cfg Config) (*Verifier, error) {
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	if cfg.Issuer == "" {
		return nil, errors.New("token issuer is required")
	}
	if len(cfg.Key) < minKeyBytes {
		return nil, fmt.Errorf("token key must be at least %d bytes", minKeyBytes)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{cfg: cfg}, nil
}

// Verify checks signature, issuer, expiry and subject of token.
func (v *Verifier) Verify(token string) (Claims, error) {
	if v == nil {
		return Claims{}, errors.New("token verifier is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeUnauthenticated, "session token is required")
	}

	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return v.cfg.Key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer != v.cfg.Issuer {
		return Claims{}, apperrors.New(apperrors.CodeUnauthenticated, "session token issuer mismatch")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeUnauthenticated, "session token exp is required")
	}
	now := v.cfg.Now().UTC()
	if !parsed.ExpiresAt.Time.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeUnauthenticated, "session token is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time) {
		return Claims{}, apperrors.New(apperrors.CodeUnauthenticated, "session token not active yet")
	}
	userID := strings.TrimSpace(parsed.Subject)
	if userID == "" {
		return Claims{}, apperrors.New(apperrors.CodeUnauthenticated, "session token subject is required")
	}

	claims := Claims{
		UserID:    userID,
		Issuer:    parsed.Issuer,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// Sign mints a token for userID valid for ttl. The identity provider owns
// production issuance; this exists for local tooling and tests.
func (v *Verifier) Sign(userID string, ttl time.Duration) (string, error) {
	if v == nil {
		return "", errors.New("token verifier is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("user id is required")
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	now := v.cfg.Now().UTC()
	claims := sessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    v.cfg.Issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.cfg.Key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "session token signature is invalid", err)
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "session token alg is invalid", err)
	}
	return apperrors.Wrap(apperrors.CodeUnauthenticated, "session token is invalid", err)
}
