package httpcache

// Option configures a CacheWrapper at construction time. Use the With*
// constructors below.
type Option func(*CacheWrapper) error

// WithMarkCachedResponses controls whether responses served from cache have
// their Extensions.FromCache flag set. Default: true.
func WithMarkCachedResponses(mark bool) Option {
	return func(w *CacheWrapper) error {
		w.markCachedResponses = mark
		return nil
	}
}

// WithDisableWarningHeader disables the RFC 7234 §5.5 Warning header that
// is otherwise added to stale responses served from cache (within a
// stale-while-revalidate or max-stale allowance, or after a transport failure).
// Default: false (the header is added).
func WithDisableWarningHeader(disable bool) Option {
	return func(w *CacheWrapper) error {
		w.disableWarningHeader = disable
		return nil
	}
}

// WithInvalidateOnUnsafeMethods controls whether a non-error response to an
// unsafe method (POST/PUT/PATCH/DELETE) invalidates same-origin cache
// entries per RFC 9111 §4.4. Default: true.
func WithInvalidateOnUnsafeMethods(enable bool) Option {
	return func(w *CacheWrapper) error {
		w.invalidateOnUnsafe = enable
		return nil
	}
}

// WithResilience attaches retry/circuit-breaker policies around every
// underlying transport dispatch.
func WithResilience(cfg *ResilienceConfig) Option {
	return func(w *CacheWrapper) error {
		w.resilience = cfg
		return nil
	}
}
