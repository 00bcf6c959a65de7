package provider

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/canvasflow/pkg/cache"
)

// Cached serves repeated requests from a cache. Concurrent identical
// requests share one upstream call, which runs detached from any single
// caller's cancellation and is bounded by its own timeout; each caller stops
// waiting when its own context is done. Failed calls are never cached.
type Cached struct {
	inner  Provider
	cache  cache.Cache
	keyer  cache.Keyer
	ttl     time.Duration
	timeout time.Duration
	scope   string
	model  string
	logger *log.Logger
	group  singleflight.Group
}

// CachedConfig configures [NewCached].
type CachedConfig struct {
	Cache cache.Cache
	Keyer cache.Keyer   // default cache.DefaultKeyer
	TTL   time.Duration // default cache.ReplyTTL

	// Timeout bounds the shared upstream call (default DefaultTimeout).
	Timeout time.Duration

	// Scope and Model become part of the key, so replies from different
	// endpoints or models never collide.
	Scope  string
	Model  string
	Logger *log.Logger
}

// NewCached wraps inner.
func NewCached(inner Provider, cfg CachedConfig) *Cached {
	c := &Cached{
		inner:  inner,
		cache:  cfg.Cache,
		keyer:  cfg.Keyer,
		ttl:     cfg.TTL,
		timeout: cfg.Timeout,
		scope:   cfg.Scope,
		model:  cfg.Model,
		logger: cfg.Logger,
	}
	if c.cache == nil {
		c.cache = cache.NewNullCache()
	}
	if c.keyer == nil {
		c.keyer = cache.NewDefaultKeyer()
	}
	if c.ttl <= 0 {
		c.ttl = cache.ReplyTTL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.logger == nil {
		c.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return c
}

type cachedRequest struct {
	Message string  `json:"message"`
	Context Context `json:"context"`
}

// SendMessage implements Provider.
func (c *Cached) SendMessage(ctx context.Context, text string, pc Context) (*Reply, error) {
	key := c.keyer.ReplyKey(c.scope, c.model, cachedRequest{Message: text, Context: pc})

	var hit Reply
	ok, err := cache.GetValue(ctx, c.cache, key, &hit)
	if err != nil {
		c.logger.Warn("reply cache read failed", "error", err)
	}
	if ok {
		c.logger.Debug("reply cache hit", "key", key)
		return &hit, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		reply, err := c.inner.SendMessage(callCtx, text, pc)
		if err != nil {
			return nil, err
		}
		if err := cache.SetValue(callCtx, c.cache, key, reply, c.ttl); err != nil {
			c.logger.Warn("reply cache write failed", "error", err)
		}
		return reply, nil
	})

	select {
	case <-ctx.Done():
		return nil, classify(ctx, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("reply shared with concurrent caller", "key", key)
		}
		r := *res.Val.(*Reply)
		return &r, nil
	}
}

var _ Provider = (*Cached)(nil)
