package httpcache

import (
	"sort"
	"strings"
)

const varyHeaderPrefix = "X-Varied-"

// varyMatches reports whether the request that produced entry (its stored
// request) still matches req for every header named in entry's Vary list.
// A stored Vary of {"*"} never matches.
func varyMatches(entry *Entry, req *Request) bool {
	for _, name := range ParseVary(entry.Response.Headers) {
		if name == "*" {
			return false
		}
		reqValue, _ := req.Headers.Get(name)
		storedValue, _ := entry.Response.Headers.Get(varyHeaderPrefix + canonicalHeaderName(name))
		if !normalizedHeaderValuesMatch(reqValue, storedValue) {
			return false
		}
	}
	return true
}

func normalizedHeaderValuesMatch(a, b string) bool {
	if a == b {
		return true
	}
	return normalizeHeaderValue(a) == normalizeHeaderValue(b)
}

// normalizeHeaderValue collapses internal whitespace runs to a single
// space and removes the space after list-separating commas, so "en, fr"
// and "en,fr" compare equal per RFC 9111 §4.1.
func normalizeHeaderValue(value string) string {
	value = strings.TrimSpace(value)
	var b strings.Builder
	prevSpace := false
	for _, r := range value {
		switch r {
		case ' ', '\t', '\n', '\r':
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
		default:
			b.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.ReplaceAll(b.String(), ", ", ",")
}

// storeVaryHeaders writes X-Varied-<Name> pseudo-headers onto resp recording
// the values of req's headers named in resp's Vary list, so a later request
// can be matched against the request that actually produced this response.
func storeVaryHeaders(resp *Response, req *Request) {
	for _, name := range ParseVary(resp.Headers) {
		if name == "*" {
			continue
		}
		value, _ := req.Headers.Get(name)
		resp.Headers = resp.Headers.Set(varyHeaderPrefix+canonicalHeaderName(name), normalizeHeaderValue(value))
	}
}

// cacheKeyWithVary extends a base key with the request's values for the
// headers named in varyHeaders, so distinct variants land at distinct keys.
func cacheKeyWithVary(baseKey string, req *Request, varyHeaders []string) string {
	if len(varyHeaders) == 0 {
		return baseKey
	}
	parts := make([]string, 0, len(varyHeaders))
	for _, name := range varyHeaders {
		if name == "*" {
			continue
		}
		value, _ := req.Headers.Get(name)
		parts = append(parts, canonicalHeaderName(name)+":"+normalizeHeaderValue(value))
	}
	if len(parts) == 0 {
		return baseKey
	}
	sort.Strings(parts)
	return baseKey + "|vary:" + strings.Join(parts, "|")
}

func canonicalHeaderName(name string) string {
	return strings.TrimSpace(name)
}
