package auth

import (
	"errors"
	"fmt"
	"time"

	"authapi_backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	audienceAccess  = "access"
	audienceRefresh = "refresh"
)

var (
	ErrTokenInvalid     = errors.New("token is expired or invalid")
	ErrInsufficientRole = errors.New("token role does not grant access")
	ErrRoleMismatch     = errors.New("requested role does not match the user's role")
)

// Claims is the payload of access and refresh tokens. Refresh tokens carry
// only the user id and role.
type Claims struct {
	UserID   string          `json:"userId"`
	Email    string          `json:"email,omitempty"`
	Username string          `json:"username,omitempty"`
	Role     models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type SessionConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenPair - пара токенов сессии
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionIssuer signs and verifies session tokens with HS256.
type SessionIssuer struct {
	cfg SessionConfig
	now func() time.Time
}

func NewSessionIssuer(cfg SessionConfig) *SessionIssuer {
	return &SessionIssuer{cfg: cfg, now: time.Now}
}

// Issue signs an access and a refresh token for u. role must be the role the
// user is authenticating under and must equal the stored role.
func (s *SessionIssuer) Issue(u *models.User, role models.UserRole) (TokenPair, error) {
	if u.Role != role {
		return TokenPair{}, ErrRoleMismatch
	}

	now := s.now()

	access := Claims{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     role,
		RegisteredClaims: s.registered(u.ID, audienceAccess, now, s.cfg.AccessTTL),
	}
	accessToken, err := sign(access, s.cfg.AccessSecret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := Claims{
		UserID:           u.ID,
		Role:             role,
		RegisteredClaims: s.registered(u.ID, audienceRefresh, now, s.cfg.RefreshTTL),
	}
	refreshToken, err := sign(refresh, s.cfg.RefreshSecret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// VerifyAccess checks signature and expiry, then requires the embedded role
// to equal requiredRole exactly.
func (s *SessionIssuer) VerifyAccess(tokenStr string, requiredRole models.UserRole) (*Claims, error) {
	claims, err := s.parse(tokenStr, s.cfg.AccessSecret, audienceAccess)
	if err != nil {
		return nil, err
	}
	if err := Authorize(claims.Role, requiredRole); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh checks signature and expiry of a refresh token.
func (s *SessionIssuer) ParseRefresh(tokenStr string) (*Claims, error) {
	return s.parse(tokenStr, s.cfg.RefreshSecret, audienceRefresh)
}

func (s *SessionIssuer) registered(userID, audience string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.cfg.Issuer,
		Subject:   userID,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *SessionIssuer) parse(tokenStr, secret, audience string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func sign(claims Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
