// Package tokenstore keeps the admin bearer token of each browser session.
// Every session has a single slot named TokenKey.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

// TokenKey is the slot name a session's token is stored under.
const TokenKey = "jwtToken"

// ErrMissing is returned by Store.Get when the key holds no value.
var ErrMissing = errors.New("tokenstore: missing")

// Store is a small key value store with per-key expiry.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key returns the store key of a session's token slot.
func Key(sessionID string) string {
	return TokenKey + ":" + sessionID
}

// Session binds a Store to one session id. It satisfies the token source
// interface used by the events client.
type Session struct {
	store Store
	id    string
	ttl   time.Duration
}

// NewSession returns the token slot of sessionID. ttl applies on every Set.
func NewSession(store Store, sessionID string, ttl time.Duration) *Session {
	return &Session{store: store, id: sessionID, ttl: ttl}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Token returns the stored token, or "" when there is none.
func (s *Session) Token(ctx context.Context) (string, error) {
	if s == nil || s.id == "" {
		return "", nil
	}
	v, err := s.store.Get(ctx, Key(s.id))
	if errors.Is(err, ErrMissing) {
		return "", nil
	}
	return v, err
}

// Set stores token, replacing any previous one.
func (s *Session) Set(ctx context.Context, token string) error {
	return s.store.Set(ctx, Key(s.id), token, s.ttl)
}

// Clear removes the token. Clearing an empty slot is not an error.
func (s *Session) Clear(ctx context.Context) error {
	if s == nil || s.id == "" {
		return nil
	}
	return s.store.Delete(ctx, Key(s.id))
}
