package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/matzehuels/canvasflow/pkg/observability"
)

// GetValue decodes the msgpack value stored under key into out. It reports
// cache hooks under the key's type.
func GetValue(ctx context.Context, c Cache, key string, out any) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, KeyType(key))
		return false, nil
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		_ = c.Delete(ctx, key)
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	observability.Cache().OnCacheHit(ctx, KeyType(key))
	return true, nil
}

// SetValue msgpack-encodes v and stores it under key.
func SetValue(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, KeyType(key), len(data))
	return nil
}
