package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidSession = errors.New("invalid session token")

// SessionService mints and verifies anonymous session tokens. A session
// ID is stable for the lifetime of the token, which is what lets a
// participant reconnect to a room and get their existing record back
// instead of a duplicate.
type SessionService struct {
	secret []byte
}

func NewSessionService(secret string) *SessionService {
	return &SessionService{secret: []byte(secret)}
}

// Issue creates a fresh anonymous session and a signed token carrying it.
func (s *SessionService) Issue() (string, string, error) {
	sessionID := uuid.NewString()

	claims := jwt.MapClaims{
		"sid": sessionID,
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", "", err
	}

	return sessionID, signed, nil
}

// Verify returns the session ID embedded in a token.
func (s *SessionService) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidSession
	}

	sessionID, ok := claims["sid"].(string)
	if !ok || sessionID == "" {
		return "", ErrInvalidSession
	}

	return sessionID, nil
}
