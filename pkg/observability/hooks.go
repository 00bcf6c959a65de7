// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries in this module report events through the registered hooks
// without depending on a concrete metrics or tracing backend. Every hook
// defaults to a no-op; binaries register real implementations at startup.
//
// # Usage
//
// Register hooks at application startup, for example the debug-logging
// implementation:
//
//	observability.NewLogHooks(logger).Register()
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnMaterializeStart(ctx, len(text))
//	// ... parse, synthesize, place ...
//	observability.Pipeline().OnMaterializeComplete(ctx, len(groups), duration, err)
package observability

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the content pipeline.
type PipelineHooks interface {
	// Parse events. dropped counts markers that produced no action.
	OnParseComplete(ctx context.Context, actions, dropped int, duration time.Duration)

	// Synthesis events, one per action or chat bubble.
	OnSynthesizeComplete(ctx context.Context, kind string, duration time.Duration, err error)

	// Materialize events cover one full response.
	OnMaterializeStart(ctx context.Context, textLen int)
	OnMaterializeComplete(ctx context.Context, groups int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Provider Hooks
// =============================================================================

// ProviderHooks receives events from calls to the conversational provider.
type ProviderHooks interface {
	// OnRequest records an outgoing provider call.
	OnRequest(ctx context.Context, provider, model string)

	// OnResponse records a successful reply.
	OnResponse(ctx context.Context, provider, model string, duration time.Duration)

	// OnError records a failed call (transport error, bad status, timeout).
	OnError(ctx context.Context, provider, model string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnParseComplete(context.Context, int, int, time.Duration)            {}
func (NoopPipelineHooks) OnSynthesizeComplete(context.Context, string, time.Duration, error) {}
func (NoopPipelineHooks) OnMaterializeStart(context.Context, int)                            {}
func (NoopPipelineHooks) OnMaterializeComplete(context.Context, int, time.Duration, error)   {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopProviderHooks is a no-op implementation of ProviderHooks.
type NoopProviderHooks struct{}

func (NoopProviderHooks) OnRequest(context.Context, string, string)                 {}
func (NoopProviderHooks) OnResponse(context.Context, string, string, time.Duration) {}
func (NoopProviderHooks) OnError(context.Context, string, string, error)            {}

// =============================================================================
// Logging Implementation
// =============================================================================

// LogHooks reports every event as a debug-level log line. It implements
// PipelineHooks, CacheHooks and ProviderHooks.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks creates hooks that log to l.
func NewLogHooks(l *log.Logger) *LogHooks { return &LogHooks{logger: l} }

// Register installs h for all three hook sets.
func (h *LogHooks) Register() {
	SetPipelineHooks(h)
	SetCacheHooks(h)
	SetProviderHooks(h)
}

func (h *LogHooks) OnParseComplete(_ context.Context, actions, dropped int, d time.Duration) {
	h.logger.Debug("parsed response", "actions", actions, "dropped", dropped, "duration", d)
}

func (h *LogHooks) OnSynthesizeComplete(_ context.Context, kind string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("synthesis failed", "kind", kind, "error", err)
		return
	}
	h.logger.Debug("synthesized group", "kind", kind, "duration", d)
}

func (h *LogHooks) OnMaterializeStart(_ context.Context, textLen int) {
	h.logger.Debug("materializing response", "bytes", textLen)
}

func (h *LogHooks) OnMaterializeComplete(_ context.Context, groups int, d time.Duration, err error) {
	h.logger.Debug("materialize finished", "groups", groups, "duration", d, "error", err)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, provider, model string) {
	h.logger.Debug("provider request", "provider", provider, "model", model)
}

func (h *LogHooks) OnResponse(_ context.Context, provider, model string, d time.Duration) {
	h.logger.Debug("provider response", "provider", provider, "model", model, "duration", d)
}

func (h *LogHooks) OnError(_ context.Context, provider, model string, err error) {
	h.logger.Debug("provider error", "provider", provider, "model", model, "error", err)
}

// =============================================================================
// Registry
// =============================================================================

// Each slot holds a pointer to the registered interface value; nil means the
// no-op default.
var (
	pipelineHooks atomic.Pointer[PipelineHooks]
	cacheHooks    atomic.Pointer[CacheHooks]
	providerHooks atomic.Pointer[ProviderHooks]
)

func load[T any](slot *atomic.Pointer[T], def T) T {
	if p := slot.Load(); p != nil {
		return *p
	}
	return def
}

// SetPipelineHooks registers pipeline hooks. Nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		pipelineHooks.Store(&h)
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		cacheHooks.Store(&h)
	}
}

// SetProviderHooks registers provider hooks. Nil is ignored.
func SetProviderHooks(h ProviderHooks) {
	if h != nil {
		providerHooks.Store(&h)
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks { return load[PipelineHooks](&pipelineHooks, NoopPipelineHooks{}) }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return load[CacheHooks](&cacheHooks, NoopCacheHooks{}) }

// Provider returns the registered provider hooks.
func Provider() ProviderHooks { return load[ProviderHooks](&providerHooks, NoopProviderHooks{}) }

// Reset restores the no-op defaults.
func Reset() {
	pipelineHooks.Store(nil)
	cacheHooks.Store(nil)
	providerHooks.Store(nil)
}
