package httpcache

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// CacheWrapper orchestrates Controller decisions against a Storage backend
// and an underlying Transport, implementing the same "dispatch a request,
// return a response" contract as the transport it wraps so it can be
// stacked (see spec §4.9).
type CacheWrapper struct {
	storage    Storage
	transport  Transport
	controller *Controller

	markCachedResponses    bool
	disableWarningHeader   bool
	invalidateOnUnsafe     bool
	resilience             *ResilienceConfig
}

// NewCacheWrapper builds a CacheWrapper from storage, transport, a
// Controller (or a default one if nil), and Options.
func NewCacheWrapper(storage Storage, transport Transport, controller *Controller, opts ...Option) (*CacheWrapper, error) {
	if controller == nil {
		controller = NewController(ControllerConfig{})
	}
	w := &CacheWrapper{
		storage:             storage,
		transport:           transport,
		controller:          controller,
		markCachedResponses: true,
		invalidateOnUnsafe:  true,
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Do implements Transport, so a CacheWrapper can itself be wrapped.
func (w *CacheWrapper) Do(ctx context.Context, req *Request) (*Response, error) {
	key := w.controller.Key(req)

	if req.Extensions.CacheDisabled {
		return w.passThrough(ctx, req, key)
	}

	entry, err := w.storage.Retrieve(ctx, key)
	if err != nil {
		return nil, err
	}

	result := w.controller.ConstructResponseFromCache(req, entry)

	switch {
	case result.Response != nil:
		return w.serveFromCache(ctx, key, entry, result.Response, result.Stale), nil

	case result.Revalidate != nil:
		return w.revalidate(ctx, key, entry, result.Revalidate)

	default:
		if ParseCacheControl(req.Headers).Has("only-if-cached") {
			return &Response{Status: 504, Headers: Headers{{Name: "Content-Length", Value: "0"}}}, nil
		}
		return w.passThrough(ctx, req, key)
	}
}

func (w *CacheWrapper) serveFromCache(ctx context.Context, key string, entry *Entry, resp *Response, stale bool) *Response {
	entry.Metadata.NumberOfUses++
	if stale && !w.disableWarningHeader {
		addStaleWarning(resp)
	}
	if age, err := calculateAge(resp.Headers, w.controller.cfg.Clock); err == nil {
		resp.Headers = resp.Headers.Set("Age", formatAge(age))
	}
	resp.Extensions = ResponseExtensions{
		FromCache: w.markCachedResponses,
		CacheMetadata: &CacheMetadata{
			CacheKey:     entry.Metadata.CacheKey,
			CreatedAt:    entry.Metadata.CreatedAt,
			NumberOfUses: entry.Metadata.NumberOfUses,
		},
	}
	if err := w.storage.Store(ctx, key, entry); err != nil {
		GetLogger().Warn("failed to persist hit counter", "key", key, "error", err)
	}
	return resp
}

func (w *CacheWrapper) revalidate(ctx context.Context, key string, entry *Entry, revalReq *Request) (*Response, error) {
	newResp, err := w.dispatch(ctx, revalReq)
	if err != nil {
		if IsConnectError(err) && w.controller.AllowedStale(entry, revalReq.Headers) {
			GetLogger().Debug("serving stale response after transport connect error", "key", key)
			stale := entry.Response.Clone()
			if !w.disableWarningHeader {
				addStaleWarning(stale)
			}
			if age, err := calculateAge(stale.Headers, w.controller.cfg.Clock); err == nil {
				stale.Headers = stale.Headers.Set("Age", formatAge(age))
			}
			stale.Extensions = ResponseExtensions{
				FromCache: w.markCachedResponses,
				CacheMetadata: &CacheMetadata{
					CacheKey:     entry.Metadata.CacheKey,
					CreatedAt:    entry.Metadata.CreatedAt,
					NumberOfUses: entry.Metadata.NumberOfUses,
				},
			}
			return stale, nil
		}
		return nil, err
	}

	merged := w.controller.HandleValidationResponse(entry.Response, newResp)
	wasRevalidated := newResp.Status == 304

	if wasRevalidated {
		entry.Metadata.NumberOfUses++
		if age, err := calculateAge(merged.Headers, w.controller.cfg.Clock); err == nil {
			merged.Headers = merged.Headers.Set("Age", formatAge(age))
		}
	} else {
		entry.Metadata.NumberOfUses = 0
	}
	entry.Response = merged

	merged.Extensions = ResponseExtensions{
		FromCache:   wasRevalidated && w.markCachedResponses,
		Revalidated: wasRevalidated,
		CacheMetadata: &CacheMetadata{
			CacheKey:     entry.Metadata.CacheKey,
			CreatedAt:    entry.Metadata.CreatedAt,
			NumberOfUses: entry.Metadata.NumberOfUses,
		},
	}

	storeVaryHeaders(merged, revalReq)
	if err := w.storage.Store(ctx, key, entry); err != nil {
		GetLogger().Warn("failed to persist revalidated entry", "key", key, "error", err)
	}

	if w.invalidateOnUnsafe && isUnsafeMethod(revalReq.Method) {
		w.invalidateCache(ctx, revalReq, merged)
	}

	return merged, nil
}

func (w *CacheWrapper) passThrough(ctx context.Context, req *Request, key string) (*Response, error) {
	resp, err := w.dispatch(ctx, req)
	if err != nil {
		return nil, err
	}
	resp.Extensions = ResponseExtensions{FromCache: false}

	if !req.Extensions.CacheDisabled && w.controller.IsCachable(req, resp) {
		entry := &Entry{
			Response: resp,
			Request:  req,
			Metadata: Metadata{
				CacheKey:  key,
				CreatedAt: w.controller.cfg.Clock.Now().Unix(),
			},
		}
		storeVaryHeaders(resp, req)
		if err := w.storage.Store(ctx, key, entry); err != nil {
			GetLogger().Warn("failed to store cache entry", "key", key, "error", err)
		}
	}

	if w.invalidateOnUnsafe && isUnsafeMethod(req.Method) {
		w.invalidateCache(ctx, req, resp)
	}

	return resp, nil
}

func (w *CacheWrapper) dispatch(ctx context.Context, req *Request) (*Response, error) {
	fn := func() (*Response, error) { return w.transport.Do(ctx, req) }
	return executeWithResilience(w.resilience, fn)
}

func (w *CacheWrapper) deleteKey(ctx context.Context, key string) error {
	deleter, ok := w.storage.(Deleter)
	if !ok {
		GetLogger().Debug("storage backend does not support delete, skipping invalidation", "key", key)
		return nil
	}
	return deleter.Delete(ctx, key)
}

// RoundTrip adapts CacheWrapper to http.RoundTripper for drop-in use as a
// client transport.
func (w *CacheWrapper) RoundTrip(httpReq *http.Request) (*http.Response, error) {
	req := &Request{
		Method: httpReq.Method,
		URL:    httpReq.URL.String(),
	}
	for name, values := range httpReq.Header {
		for _, v := range values {
			req.Headers = req.Headers.Add(name, v)
		}
	}
	if httpReq.Body != nil {
		body, err := io.ReadAll(httpReq.Body)
		if err != nil {
			return nil, err
		}
		httpReq.Body.Close()
		req.Body = body
	}

	resp, err := w.Do(httpReq.Context(), req)
	if err != nil {
		return nil, err
	}

	httpResp := &http.Response{
		StatusCode: resp.Status,
		Status:     http.StatusText(resp.Status),
		Header:     make(http.Header),
		Request:    httpReq,
		Body:       io.NopCloser(bytes.NewReader(resp.Body)),
	}
	for _, kv := range resp.Headers {
		httpResp.Header.Add(kv.Name, kv.Value)
	}
	return httpResp, nil
}

// Client returns an *http.Client whose Transport is w, for convenience.
func (w *CacheWrapper) Client() *http.Client {
	return &http.Client{Transport: w}
}

var _ Transport = (*CacheWrapper)(nil)
