// Package cache provides the byte-oriented cache used for provider replies
// and other derived data.
//
// Three backends implement [Cache]:
//   - [NullCache] never stores anything (caching disabled)
//   - [FileCache] stores msgpack-encoded entries under a directory, for the CLI
//   - [RedisCache] shares entries between server instances
//
// Keys are built by a [Keyer] so every backend sees the same key space, and
// [ScopedKeyer] namespaces keys per tenant or canvas.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache stores opaque byte values with an optional time to live.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default time-to-live values.
const (
	// ReplyTTL bounds how long a provider reply is reused.
	ReplyTTL = 24 * time.Hour

	// SessionTTL bounds how long an idle conversation is kept.
	SessionTTL = 7 * 24 * time.Hour
)

// ErrCorrupt is returned when a stored value cannot be decoded.
var ErrCorrupt = errors.New("corrupt cache entry")
