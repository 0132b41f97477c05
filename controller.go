package httpcache

// CacheResult is the outcome of Controller.ConstructResponseFromCache.
type CacheResult struct {
	// Response is set when the stored entry is fresh and should be served
	// directly.
	Response *Response
	// Revalidate is set when a conditional request should be forwarded to
	// the origin.
	Revalidate *Request
	// Miss is true when neither of the above applies and the caller must
	// treat this as an ordinary cache miss.
	Miss bool
	// Stale is true when Response is served despite being technically
	// stale, either within its stale-while-revalidate window or within
	// the request's max-stale tolerance.
	Stale bool
}

// ControllerConfig configures a Controller. The zero value is not usable;
// construct with NewController.
type ControllerConfig struct {
	CacheableMethods      map[string]bool
	CacheableStatusCodes  map[int]bool
	AllowHeuristics       bool
	AllowStale            bool
	IsSharedCache         bool
	ForceCache            bool
	Clock                 Clock
	KeyDeriver            KeyDeriver
}

// Controller is the pure cache decision engine. It performs no I/O: every
// method is a function of its explicit inputs plus its injected Clock.
type Controller struct {
	cfg ControllerConfig
}

// NewController builds a Controller, filling in defaults for any zero-value
// field of cfg.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.CacheableMethods == nil {
		cfg.CacheableMethods = defaultCacheableMethods
	}
	if cfg.CacheableStatusCodes == nil {
		cfg.CacheableStatusCodes = defaultCacheableStatusCodes
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.KeyDeriver == nil {
		cfg.KeyDeriver = DefaultKeyDeriver
	}
	return &Controller{cfg: cfg}
}

// Key derives the storage key for req.
func (c *Controller) Key(req *Request) string {
	return c.cfg.KeyDeriver(req)
}

// ConstructResponseFromCache implements the stored-entry decision algorithm
// of spec §4.3: Vary check, no-store/cache_disabled, forced no-cache
// revalidation, freshness computation, and the stale/validator branch.
func (c *Controller) ConstructResponseFromCache(req *Request, entry *Entry) CacheResult {
	if entry == nil {
		return CacheResult{Miss: true}
	}

	// Step 1: Vary check.
	if !varyMatches(entry, req) {
		return CacheResult{Miss: true}
	}

	reqCC := ParseCacheControl(req.Headers)

	// Step 2: no-store / cache_disabled.
	if reqCC.Has("no-store") || req.Extensions.CacheDisabled {
		return CacheResult{Miss: true}
	}

	// Step 3: forced revalidation.
	if reqCC.Has("no-cache") {
		return c.buildRevalidationOrMiss(req, entry)
	}

	// Step 4-5: freshness.
	freshness := getFreshness(entry.Response.Headers, req.Headers, c.cfg.Clock, c.cfg.AllowHeuristics)
	switch freshness {
	case freshnessFresh:
		resp := entry.Response.Clone()
		stale := isActuallyStale(entry.Response.Headers, c.cfg.Clock, c.cfg.AllowHeuristics)
		return CacheResult{Response: resp, Stale: stale}
	case freshnessStaleWhileRevalidate:
		resp := entry.Response.Clone()
		return CacheResult{Response: resp, Stale: true}
	}

	// Step 6: stale branch.
	return c.buildRevalidationOrMiss(req, entry)
}

func (c *Controller) buildRevalidationOrMiss(req *Request, entry *Entry) CacheResult {
	respCC := ParseCacheControl(entry.Response.Headers)
	if respCC.Has("must-revalidate") || respCC.Has("proxy-revalidate") {
		if !hasValidator(entry.Response.Headers) {
			return CacheResult{Miss: true}
		}
	}

	if !hasValidator(entry.Response.Headers) {
		if c.cfg.AllowStale {
			return CacheResult{Response: entry.Response.Clone()}
		}
		return CacheResult{Miss: true}
	}

	revalReq := req.Clone()
	if etag, ok := entry.Response.Headers.Get("ETag"); ok {
		revalReq.Headers = revalReq.Headers.Set("If-None-Match", etag)
	}
	if lastModified, ok := entry.Response.Headers.Get("Last-Modified"); ok {
		revalReq.Headers = revalReq.Headers.Set("If-Modified-Since", lastModified)
	}
	return CacheResult{Revalidate: revalReq}
}

func hasValidator(headers Headers) bool {
	if _, ok := headers.Get("ETag"); ok {
		return true
	}
	_, ok := headers.Get("Last-Modified")
	return ok
}

// HandleValidationResponse implements handle_validation_response: on a 304,
// merge new's end-to-end headers onto old and keep old's status and body;
// otherwise new replaces old entirely.
func (c *Controller) HandleValidationResponse(old, new *Response) *Response {
	if new.Status != 304 {
		return new
	}

	merged := old.Clone()
	merged.Status = old.Status
	merged.Body = old.Body

	for _, kv := range new.Headers {
		if hopByHopHeaders[kv.Name] {
			continue
		}
		merged.Headers = merged.Headers.Set(kv.Name, kv.Value)
	}
	if cl, ok := old.Headers.Get("Content-Length"); ok {
		merged.Headers = merged.Headers.Set("Content-Length", cl)
	}
	return merged
}

// IsCachable implements is_cachable: method, status, and directive
// eligibility for admitting resp to storage in response to req.
func (c *Controller) IsCachable(req *Request, resp *Response) bool {
	if !c.cfg.CacheableMethods[req.Method] {
		return false
	}
	if !c.cfg.ForceCache && !c.cfg.CacheableStatusCodes[resp.Status] {
		return false
	}

	if vary := ParseVary(resp.Headers); len(vary) == 1 && vary[0] == "*" {
		return false
	}

	reqCC := ParseCacheControl(req.Headers)
	respCC := ParseCacheControl(resp.Headers)

	if !canStore(req, reqCC, respCC, c.cfg.IsSharedCache, resp.Status) {
		return false
	}

	// Membership in CacheableStatusCodes (checked above) is itself the
	// admission signal for these statuses, matching the teacher's
	// shouldCache: no separate max-age/validator/Expires requirement.
	return true
}

// AllowedStale reports whether entry's stored response may be served when
// the transport cannot reach the origin (spec §4.3 allowed_stale).
func (c *Controller) AllowedStale(entry *Entry, reqHeaders Headers) bool {
	respCC := ParseCacheControl(entry.Response.Headers)
	if respCC.Has("must-revalidate") || respCC.Has("proxy-revalidate") {
		return false
	}
	if canStaleOnError(entry.Response.Headers, reqHeaders, c.cfg.Clock) {
		return true
	}
	return c.cfg.AllowStale
}
