package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is stamped into every token and required when parsing.
const Issuer = "grooming-booking-backend"

// DefaultRefreshTTL is how long a refresh token lives unless overridden.
const DefaultRefreshTTL = 7 * 24 * time.Hour

// TokenType separates short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims defines the JWT claims we embed in our token.
type Claims struct {
	UserID    string    `json:"sub"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	TokenType TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// JWTManager manages JWT access and refresh token creation and validation.
type JWTManager struct {
	secret     []byte
	ttl        time.Duration
	refreshTTL time.Duration
}

// Option tunes a JWTManager.
type Option func(*JWTManager)

// WithRefreshTTL sets the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(m *JWTManager) {
		if ttl != 0 {
			m.refreshTTL = ttl
		}
	}
}

// NewJWTManager creates a new JWT manager.
func NewJWTManager(secret string, ttl time.Duration, opts ...Option) *JWTManager {
	m := &JWTManager{
		secret:     []byte(secret),
		ttl:        ttl,
		refreshTTL: DefaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GenerateAccessToken creates a signed JWT for the given user.
func (m *JWTManager) GenerateAccessToken(userID, email string, role Role) (string, error) {
	return m.generate(userID, email, role, TokenAccess, m.ttl)
}

// GenerateRefreshToken creates a long-lived token that can only be traded for a new pair.
func (m *JWTManager) GenerateRefreshToken(userID, email string, role Role) (string, error) {
	return m.generate(userID, email, role, TokenRefresh, m.refreshTTL)
}

func (m *JWTManager) generate(userID, email string, role Role, typ TokenType, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims := &Claims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign jwt: %w", err)
	}

	return signed, nil
}

// ParseAndValidate validates an access token and returns the parsed claims.
func (m *JWTManager) ParseAndValidate(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, TokenAccess)
}

// ParseRefreshToken validates a refresh token and returns the parsed claims.
func (m *JWTManager) ParseRefreshToken(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, TokenRefresh)
}

func (m *JWTManager) parse(tokenStr string, want TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jwt: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid jwt token")
	}
	if claims.UserID == "" {
		return nil, errors.New("jwt has no subject")
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("unknown role %q in jwt", claims.Role)
	}
	if claims.TokenType != want {
		return nil, fmt.Errorf("expected %s token, got %q", want, claims.TokenType)
	}

	return claims, nil
}
