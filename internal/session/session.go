// Package session stores playground gate sessions: a candidate key that
// passed validation, remembered server-side for a bounded period so the
// protected page can re-check it on every load.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session has expired")
)

// Session is a validated playground key.
type Session struct {
	ID        string    `json:"id"`
	Secret    string    `json:"secret"`
	Validated bool      `json:"validated"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New creates a validated session for secret that lasts ttl.
func New(secret string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Secret:    secret,
		Validated: true,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
