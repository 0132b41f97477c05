package prometheus

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/veyronhq/httpcache"
	"github.com/veyronhq/httpcache/metrics"
)

// InstrumentedTransport wraps a *httpcache.CacheWrapper with Prometheus
// metrics, recording one HTTP-request observation per dispatched request.
type InstrumentedTransport struct {
	underlying *httpcache.CacheWrapper
	collector  metrics.Collector
}

// NewInstrumentedTransport wraps transport, recording metrics on collector
// (metrics.DefaultCollector if nil).
//
// Example:
//
//	collector := prometheus.NewCollector()
//	storage := httpcache.NewEvictionCache(0)
//	wrapper, _ := httpcache.NewCacheWrapper(storage, httpcache.NewHTTPTransport(nil), nil)
//	instrumented := prometheus.NewInstrumentedTransport(wrapper, collector)
//	client := instrumented.Client()
func NewInstrumentedTransport(transport *httpcache.CacheWrapper, collector metrics.Collector) *InstrumentedTransport {
	if collector == nil {
		collector = metrics.DefaultCollector
	}
	return &InstrumentedTransport{underlying: transport, collector: collector}
}

// Do implements httpcache.Transport.
func (t *InstrumentedTransport) Do(ctx context.Context, req *httpcache.Request) (*httpcache.Response, error) {
	start := httpcache.SystemClock.Now()
	resp, err := t.underlying.Do(ctx, req)
	duration := httpcache.SystemClock.Now().Sub(start)
	if err != nil {
		return nil, err
	}

	cacheStatus := cacheStatusFor(req, resp)
	t.collector.RecordHTTPRequest(req.Method, cacheStatus, resp.Status, duration)
	if size, ok := resp.Headers.Get("Content-Length"); ok && size != "" {
		if n, err := strconv.ParseInt(size, 10, 64); err == nil {
			t.collector.RecordHTTPResponseSize(cacheStatus, n)
		}
	}

	return resp, nil
}

func cacheStatusFor(req *httpcache.Request, resp *httpcache.Response) string {
	switch {
	case req.Extensions.CacheDisabled:
		return "bypass"
	case resp.Extensions.Revalidated:
		return "revalidated"
	case resp.Extensions.FromCache:
		return "hit"
	default:
		return "miss"
	}
}

// RoundTrip adapts InstrumentedTransport to http.RoundTripper.
func (t *InstrumentedTransport) RoundTrip(httpReq *http.Request) (*http.Response, error) {
	req := &httpcache.Request{
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

	resp, err := t.Do(httpReq.Context(), req)
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

// Client returns an *http.Client using this instrumented transport.
func (t *InstrumentedTransport) Client() *http.Client {
	return &http.Client{Transport: t}
}

var _ httpcache.Transport = (*InstrumentedTransport)(nil)
var _ http.RoundTripper = (*InstrumentedTransport)(nil)
