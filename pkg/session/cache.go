package session

import (
	"context"
	"time"

	"github.com/matzehuels/canvasflow/pkg/cache"
)

// CacheStore keeps sessions in a [cache.Cache], msgpack-encoded. Expiry is
// delegated to the backend's TTL, so Cleanup is a no-op.
type CacheStore struct {
	cache cache.Cache
	keyer cache.Keyer
}

// NewCacheStore creates a store over c. A nil keyer uses the default.
func NewCacheStore(c cache.Cache, keyer cache.Keyer) *CacheStore {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &CacheStore{cache: c, keyer: keyer}
}

func (s *CacheStore) Get(ctx context.Context, id string) (*Session, error) {
	var sess Session
	ok, err := cache.GetValue(ctx, s.cache, s.keyer.SessionKey(id), &sess)
	if err != nil || !ok {
		return nil, err
	}
	if sess.IsExpired() {
		return nil, nil
	}
	return &sess, nil
}

func (s *CacheStore) Set(ctx context.Context, sess *Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if sess.ExpiresAt.IsZero() || ttl <= 0 {
		ttl = cache.SessionTTL
	}
	return cache.SetValue(ctx, s.cache, s.keyer.SessionKey(sess.ID), sess, ttl)
}

func (s *CacheStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, s.keyer.SessionKey(id))
}

func (s *CacheStore) Cleanup(context.Context) error { return nil }

var _ Store = (*CacheStore)(nil)
