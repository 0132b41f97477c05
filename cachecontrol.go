package httpcache

import (
	"strconv"
	"strings"
)

// CacheControl is a parsed set of Cache-Control directives, keyed by
// lowercased directive name. A boolean directive is present with an empty
// value; a valued directive keeps its raw (possibly malformed) value.
type CacheControl map[string]string

// Has reports whether directive was present, with any value.
func (cc CacheControl) Has(directive string) bool {
	_, ok := cc[directive]
	return ok
}

// Int64 returns the integer argument of directive, if present and valid.
func (cc CacheControl) Int64(directive string) (int64, bool) {
	v, ok := cc[directive]
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ParseCacheControl parses every Cache-Control header value in headers,
// case-insensitively. Duplicate directives keep the first occurrence; the
// rest are logged and dropped, rather than silently overwriting it.
func ParseCacheControl(headers Headers) CacheControl {
	cc := CacheControl{}
	for _, raw := range headers.Values("Cache-Control") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, value, hasValue := strings.Cut(part, "=")
			name = strings.ToLower(strings.TrimSpace(name))
			if hasValue {
				value = strings.Trim(strings.TrimSpace(value), `"`)
			}
			if _, exists := cc[name]; exists {
				GetLogger().Debug("duplicate cache-control directive ignored", "directive", name)
				continue
			}
			cc[name] = value
		}
	}
	validateMaxAgeDirective(cc, "max-age")
	validateMaxAgeDirective(cc, "s-maxage")
	return cc
}

// validateMaxAgeDirective drops a max-age/s-maxage value that isn't an
// integer and clamps a negative one to 0, logging why.
func validateMaxAgeDirective(cc CacheControl, directive string) {
	value, ok := cc[directive]
	if !ok || value == "" {
		return
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		GetLogger().Debug("invalid cache-control value, ignoring directive", "directive", directive, "value", value)
		delete(cc, directive)
		return
	}
	if n < 0 {
		GetLogger().Debug("negative cache-control value, treating as 0", "directive", directive, "value", value)
		cc[directive] = "0"
	}
}

// ParseVary parses the Vary header into an ordered, deduplicated list of
// header names. A literal "*" anywhere collapses the result to {"*"}.
func ParseVary(headers Headers) []string {
	var names []string
	seen := map[string]bool{}
	for _, raw := range headers.Values("Vary") {
		for _, part := range strings.Split(raw, ",") {
			name := strings.TrimSpace(part)
			if name == "" {
				continue
			}
			if name == "*" {
				return []string{"*"}
			}
			lower := strings.ToLower(name)
			if !seen[lower] {
				seen[lower] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// canStore implements the storage half of Controller.IsCachable: RFC 9111
// §3's no-store/private/must-understand/Authorization gating, independent
// of the method and status-code filters applied by the caller.
func canStore(req *Request, reqCC, respCC CacheControl, isSharedCache bool, statusCode int) bool {
	if respCC.Has("must-understand") {
		if !understoodStatusCodes[statusCode] {
			return false
		}
		// must-understand overrides no-store when the status is understood.
	} else {
		if respCC.Has("no-store") || reqCC.Has("no-store") {
			return false
		}
	}

	if isSharedCache {
		if _, hasAuth := req.Headers.Get("Authorization"); hasAuth {
			if !respCC.Has("public") && !respCC.Has("must-revalidate") && !respCC.Has("s-maxage") {
				GetLogger().Debug("refusing to cache authenticated request in shared cache", "url", req.URL)
				return false
			}
		}
		if respCC.Has("private") {
			return false
		}
	}

	return true
}
