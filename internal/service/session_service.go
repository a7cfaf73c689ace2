package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/testdesk/internal/config"
	"github.com/stemsi/testdesk/internal/model"
)

// ErrNotAdmin is returned when a session is requested for a non-admin user.
var ErrNotAdmin = errors.New("session requires an admin user")

// SessionClaims identifies the admin a dashboard session belongs to.
type SessionClaims struct {
	jwt.RegisteredClaims
	ChatID model.ChatID `json:"chat_id"`
	Role   string       `json:"role"`
}

// SessionService issues and validates signed dashboard sessions.
type SessionService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(cfg *config.Config) *SessionService {
	return &SessionService{
		secret: []byte(cfg.SessionSecret),
		expiry: cfg.SessionExpiry,
		now:    time.Now,
	}
}

// Expiry is how long an issued session stays valid.
func (s *SessionService) Expiry() time.Duration { return s.expiry }

// Issue signs a session for an admin user.
func (s *SessionService) Issue(user *model.User) (string, error) {
	if !user.IsAdmin() {
		return "", ErrNotAdmin
	}
	now := s.now()

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ChatID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		ChatID: user.ChatID,
		Role:   user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Validate parses a session token, returning its claims.
func (s *SessionService) Validate(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid session claims")
	}
	return claims, nil
}
