package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Keyer builds cache keys. All backends share one key space, so callers
// never format keys by hand.
type Keyer interface {
	// ReplyKey identifies a provider reply by endpoint, model and the full
	// request payload (message plus history).
	ReplyKey(endpoint, model string, payload any) string

	// SessionKey identifies a stored conversation.
	SessionKey(id string) string
}

// DefaultKeyer produces "<type>:<value>" keys. Request payloads are hashed.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ReplyKey implements Keyer.
func (DefaultKeyer) ReplyKey(endpoint, model string, payload any) string {
	return hashKey("reply", endpoint, model, payload)
}

// SessionKey implements Keyer.
func (DefaultKeyer) SessionKey(id string) string {
	return "session:" + id
}

// KeyType returns the type segment of a key built by [DefaultKeyer], for
// metrics labels. Scoped prefixes are skipped.
func KeyType(key string) string {
	for _, seg := range strings.Split(key, ":") {
		switch seg {
		case "reply", "session":
			return seg
		}
	}
	return "other"
}

// hashKey formats prefix:sha256(json(parts)).
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
