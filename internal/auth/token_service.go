package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL defines the fallback validity period for bearer tokens.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenConfig bundles the configuration required to build a TokenService.
type TokenConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
	Clock    func() time.Time
}

// Claims carries only the session reference. Identity is always resolved
// through the session row, never read out of the token.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the signed bearer tokens that reference sessions.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService constructs a TokenService instance from the provided configuration.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token: secret must be provided")
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    now,
	}, nil
}

// TokenTTL exposes the configured bearer lifetime so cookie expiry can match it.
func (s *TokenService) TokenTTL() time.Duration {
	return s.ttl
}

// Issue signs a bearer token referencing the supplied session.
func (s *TokenService) Issue(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("token: session id is required")
	}

	now := s.now()
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			ID:        sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}

	return signed, nil
}

// Verify checks signature and validity window, returning the referenced
// session id. It never touches the datastore.
func (s *TokenService) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", errors.New("token: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("token: parse: %w", err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return "", errors.New("token: invalid issuer")
	}

	if claims.SessionID == "" {
		return "", errors.New("token: missing session claim")
	}

	return claims.SessionID, nil
}
