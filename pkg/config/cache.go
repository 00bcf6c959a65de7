package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/matzehuels/canvasflow/pkg/cache"
)

// DefaultCacheDir returns ~/.cache/canvasflow.
func DefaultCacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "canvasflow"), nil
}

// Open creates the configured cache backend. The none backend returns a
// [cache.NullCache].
func (c CacheConfig) Open(ctx context.Context) (cache.Cache, error) {
	switch c.Backend {
	case BackendFile:
		dir := c.Dir
		if dir == "" {
			d, err := DefaultCacheDir()
			if err != nil {
				return nil, err
			}
			dir = d
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	case BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return cache.NewNullCache(), nil
	}
}
