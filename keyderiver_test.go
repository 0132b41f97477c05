package httpcache

import "testing"

func TestDefaultKeyDeriverStableAndCaseInsensitiveMethod(t *testing.T) {
	a := DefaultKeyDeriver(&Request{Method: "get", URL: "http://example.com/a"})
	b := DefaultKeyDeriver(&Request{Method: "GET", URL: "http://example.com/a"})
	if a != b {
		t.Fatal("method case must not affect the derived key")
	}
}

func TestDefaultKeyDeriverURLNormalization(t *testing.T) {
	a := DefaultKeyDeriver(&Request{Method: "GET", URL: "HTTP://Example.com/a"})
	b := DefaultKeyDeriver(&Request{Method: "GET", URL: "http://example.com/a"})
	if a != b {
		t.Fatal("scheme and host case must be normalized")
	}
}

func TestDefaultKeyDeriverDistinctPaths(t *testing.T) {
	a := DefaultKeyDeriver(&Request{Method: "GET", URL: "http://example.com/a"})
	b := DefaultKeyDeriver(&Request{Method: "GET", URL: "http://example.com/b"})
	if a == b {
		t.Fatal("distinct paths must derive distinct keys")
	}
}

func TestDefaultKeyDeriverBodySensitiveForPOST(t *testing.T) {
	a := DefaultKeyDeriver(&Request{Method: "POST", URL: "http://example.com/graphql", Body: []byte(`{"q":"a"}`)})
	b := DefaultKeyDeriver(&Request{Method: "POST", URL: "http://example.com/graphql", Body: []byte(`{"q":"b"}`)})
	if a == b {
		t.Fatal("distinct POST bodies at the same URL must derive distinct keys")
	}
}

func TestDefaultKeyDeriverIgnoresBodyForGET(t *testing.T) {
	a := DefaultKeyDeriver(&Request{Method: "GET", URL: "http://example.com/a", Body: []byte("x")})
	b := DefaultKeyDeriver(&Request{Method: "GET", URL: "http://example.com/a", Body: []byte("y")})
	if a != b {
		t.Fatal("GET is not body-sensitive, body must not affect the key")
	}
}
