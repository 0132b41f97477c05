package httpcache

import (
	"context"
	"net/url"
)

func isUnsafeMethod(method string) bool {
	return method == methodPOST || method == methodPUT || method == methodDELETE || method == methodPATCH
}

// invalidateCache implements RFC 9111 §4.4: on a non-error response to an
// unsafe method, invalidate the effective request URI plus any same-origin
// Location/Content-Location target.
func (w *CacheWrapper) invalidateCache(ctx context.Context, req *Request, resp *Response) {
	if resp.Status >= 400 {
		GetLogger().Debug("skipping cache invalidation for error response", "status", resp.Status, "url", req.URL)
		return
	}

	reqURL, err := url.Parse(req.URL)
	if err != nil {
		return
	}

	w.invalidateURI(ctx, reqURL, "request-uri")

	if location, ok := resp.Headers.Get(headerLocation); ok && location != "" {
		w.invalidateHeaderURI(ctx, reqURL, location, "Location")
	}
	if contentLocation, ok := resp.Headers.Get(headerContentLocation); ok && contentLocation != "" {
		w.invalidateHeaderURI(ctx, reqURL, contentLocation, "Content-Location")
	}
}

func (w *CacheWrapper) invalidateHeaderURI(ctx context.Context, base *url.URL, headerValue, headerName string) {
	target, err := base.Parse(headerValue)
	if err != nil {
		GetLogger().Debug("failed to parse invalidation URI", "header", headerName, "value", headerValue, "error", err)
		return
	}
	if !isSameOrigin(base, target) {
		GetLogger().Debug("skipping cross-origin invalidation", "header", headerName, "request-origin", getOrigin(base), "target-origin", getOrigin(target))
		return
	}
	w.invalidateURI(ctx, target, headerName)
}

func (w *CacheWrapper) invalidateURI(ctx context.Context, target *url.URL, source string) {
	getKey := w.controller.Key(&Request{Method: methodGET, URL: target.String()})
	if err := w.deleteKey(ctx, getKey); err != nil {
		GetLogger().Warn("failed to invalidate cache entry", "key", getKey, "error", err)
	} else {
		GetLogger().Debug("invalidated cache entry", "key", getKey, "source", source, "url", target.String())
	}

	headKey := w.controller.Key(&Request{Method: methodHEAD, URL: target.String()})
	if headKey != getKey {
		if err := w.deleteKey(ctx, headKey); err != nil {
			GetLogger().Warn("failed to invalidate HEAD cache entry", "key", headKey, "error", err)
		} else {
			GetLogger().Debug("invalidated HEAD cache entry", "key", headKey, "source", source)
		}
	}
}

func isSameOrigin(a, b *url.URL) bool {
	return a.Scheme == b.Scheme && a.Host == b.Host
}

func getOrigin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
