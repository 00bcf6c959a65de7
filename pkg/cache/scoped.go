package cache

// ScopedKeyer prefixes every key of an inner Keyer, isolating tenants or
// canvases that share one backend.
//
//	perCanvas := cache.NewScopedKeyer(nil, "canvas:"+id+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner (default [DefaultKeyer]) with prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ReplyKey implements Keyer.
func (k *ScopedKeyer) ReplyKey(endpoint, model string, payload any) string {
	return k.prefix + k.inner.ReplyKey(endpoint, model, payload)
}

// SessionKey implements Keyer.
func (k *ScopedKeyer) SessionKey(id string) string {
	return k.prefix + k.inner.SessionKey(id)
}
