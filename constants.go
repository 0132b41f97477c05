package httpcache

// Timing header names that calculateAge reads from a response when they are
// present. Nothing in this package writes them.
const (
	headerXRequestTime  = "X-Httpcache-Request-Time"
	headerXResponseTime = "X-Httpcache-Response-Time"
	headerXCachedTime   = "X-Httpcache-Cached-Time"
)

const (
	headerLocation        = "Location"
	headerContentLocation = "Content-Location"
	headerAuthorization   = "Authorization"
)

const (
	methodGET    = "GET"
	methodHEAD   = "HEAD"
	methodPOST   = "POST"
	methodPUT    = "PUT"
	methodPATCH  = "PATCH"
	methodDELETE = "DELETE"
)

// hopByHopHeaders are never copied from a 304 validation response onto the
// merged stored response (RFC 9111 §3.1 lists the classic Connection-named
// set plus the historically hop-by-hop fields).
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"TE":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// understoodStatusCodes gates the must-understand Cache-Control directive:
// a response carrying it may only be stored if its status is in this set.
var understoodStatusCodes = map[int]bool{
	200: true, 201: true, 202: true, 203: true, 204: true,
	206: true, 300: true, 301: true, 302: true, 303: true,
	304: true, 307: true, 308: true, 404: true, 405: true,
	410: true, 414: true, 501: true,
}

// defaultCacheableStatusCodes is the Controller's default admission set
// (spec §4.3).
var defaultCacheableStatusCodes = map[int]bool{
	200: true, 203: true, 204: true, 206: true, 300: true,
	301: true, 308: true, 404: true, 405: true, 410: true,
	414: true, 501: true,
}

// defaultCacheableMethods is the Controller's default method admission set.
var defaultCacheableMethods = map[string]bool{
	methodGET:  true,
	methodHEAD: true,
}

// Freshness classifies a stored response relative to a new request.
type Freshness int

const (
	freshnessFresh Freshness = iota
	freshnessStale
	freshnessTransparent
	freshnessStaleWhileRevalidate
)

func (f Freshness) String() string {
	switch f {
	case freshnessFresh:
		return "fresh"
	case freshnessStale:
		return "stale"
	case freshnessStaleWhileRevalidate:
		return "stale-while-revalidate"
	case freshnessTransparent:
		return "transparent"
	default:
		return "unknown"
	}
}
