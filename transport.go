package httpcache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
)

// ConnectError distinguishes a transport's failure to reach the origin at
// all from other transport failures (malformed request, canceled context),
// since only the former permits the stale-on-error fallback.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string { return "httpcache: connect error: " + e.Err.Error() }
func (e *ConnectError) Unwrap() error { return e.Err }

// IsConnectError reports whether err is or wraps a ConnectError.
func IsConnectError(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce)
}

// Transport dispatches a prepared Request to the origin and returns a
// Response with a fully materialized body, or an error (a *ConnectError
// when the origin could not be reached at all).
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport adapts an http.RoundTripper to the Transport contract, so
// the wrapper can sit in front of any net/http client.
type HTTPTransport struct {
	RoundTripper http.RoundTripper
}

// NewHTTPTransport wraps rt, defaulting to http.DefaultTransport if rt is nil.
func NewHTTPTransport(rt http.RoundTripper) *HTTPTransport {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &HTTPTransport{RoundTripper: rt}
}

func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader(req.Body))
	if err != nil {
		return nil, err
	}
	for _, kv := range req.Headers {
		httpReq.Header.Add(kv.Name, kv.Value)
	}

	httpResp, err := t.RoundTripper.RoundTrip(httpReq)
	if err != nil {
		if isConnectFailure(err) {
			return nil, &ConnectError{Err: err}
		}
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	var headers Headers
	for name, values := range httpResp.Header {
		for _, v := range values {
			headers = headers.Add(name, v)
		}
	}

	return &Response{
		Status:  httpResp.StatusCode,
		Headers: headers,
		Body:    body,
	}, nil
}

func bodyReader(body []byte) io.Reader {
	if body == nil {
		return nil
	}
	return bytes.NewReader(body)
}

// isConnectFailure distinguishes a dial/connection failure from other
// RoundTrip errors (context cancellation, malformed request). http.Transport
// wraps dial failures (refused, DNS, timeout-to-connect) in a *net.OpError
// whose Op is "dial".
func isConnectFailure(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
