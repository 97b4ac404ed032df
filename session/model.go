package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is one authenticated browser of an account. It is keyed in Redis by
// the account name so every session of an account shares one key prefix.
type Session struct {
	SessionID string
	Name      string
	IPHash    [32]byte

	CreatedAt int64
	ExpiresAt int64
}

// New returns a session for name with a fresh random ID that expires after
// lifetime.
func New(name string, lifetime time.Duration, now time.Time) (*Session, error) {
	if name == "" {
		return nil, errors.New("session name is required")
	}
	if lifetime <= 0 {
		return nil, errors.New("session lifetime must be positive")
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	return &Session{
		SessionID: id.String(),
		Name:      name,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(lifetime).Unix(),
	}, nil
}

// Expired reports whether the absolute lifetime has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.Unix()
}
