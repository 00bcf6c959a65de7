// Package session stores conversations between turns.
//
// A [Session] carries the bounded history sent to the provider with every
// turn. Stores implement [Store]:
//   - [MemoryStore]: in-process, for the server and tests
//   - [FileStore]: JSON files under ~/.config/canvasflow/sessions, for the CLI
//   - [CacheStore]: any [cache.Cache] backend, typically Redis, for
//     multi-instance servers
//
// Sessions expire after a TTL that is extended every time they are saved.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/canvasflow/pkg/history"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 7 * 24 * time.Hour

// Session is one conversation.
type Session struct {
	ID        string           `json:"id" msgpack:"id"`
	History   *history.History `json:"history" msgpack:"history"`
	CreatedAt time.Time        `json:"created_at" msgpack:"created_at"`
	ExpiresAt time.Time        `json:"expires_at" msgpack:"expires_at"`
}

// New creates a session. An empty id gets a random UUID; historyLimit <= 0
// uses [history.DefaultLimit].
func New(id string, historyLimit int, ttl time.Duration) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	return &Session{
		ID:        id,
		History:   history.New(historyLimit),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Touch extends the expiry to ttl from now.
func (s *Session) Touch(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.ExpiresAt = time.Now().Add(ttl)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, s *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions (may be a no-op).
	Cleanup(ctx context.Context) error
}

// Load returns the stored session for id, or a fresh one when none exists.
func Load(ctx context.Context, store Store, id string, historyLimit int) (*Session, error) {
	sess, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess = New(id, historyLimit, DefaultTTL)
	}
	if sess.History == nil {
		sess.History = history.New(historyLimit)
	}
	return sess, nil
}
