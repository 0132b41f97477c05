package httpcache

import "testing"

func TestHeadersGet(t *testing.T) {
	h := Headers{{Name: "Content-Type", Value: "text/plain"}}
	v, ok := h.Get("content-type")
	if !ok || v != "text/plain" {
		t.Fatalf("Get case-insensitive: got %q, %v", v, ok)
	}
	if _, ok := h.Get("X-Missing"); ok {
		t.Fatal("Get should report absent header as not found")
	}
}

func TestHeadersValues(t *testing.T) {
	h := Headers{
		{Name: "Set-Cookie", Value: "a=1"},
		{Name: "Set-Cookie", Value: "b=2"},
		{Name: "Content-Type", Value: "text/plain"},
	}
	vals := h.Values("set-cookie")
	if len(vals) != 2 || vals[0] != "a=1" || vals[1] != "b=2" {
		t.Fatalf("Values returned %v", vals)
	}
}

func TestHeadersSetReplacesInPlace(t *testing.T) {
	h := Headers{
		{Name: "A", Value: "1"},
		{Name: "B", Value: "2"},
		{Name: "A", Value: "3"},
	}
	h = h.Set("A", "new")
	if len(h) != 2 {
		t.Fatalf("Set should collapse duplicates, got %v", h)
	}
	if h[0].Name != "A" || h[0].Value != "new" {
		t.Fatalf("Set should replace at first occurrence position, got %v", h)
	}
	if h[1].Name != "B" {
		t.Fatalf("Set should preserve other headers, got %v", h)
	}
}

func TestHeadersSetAppendsWhenAbsent(t *testing.T) {
	h := Headers{{Name: "A", Value: "1"}}
	h = h.Set("B", "2")
	if len(h) != 2 || h[1].Name != "B" {
		t.Fatalf("Set should append absent header, got %v", h)
	}
}

func TestHeadersAddKeepsDuplicates(t *testing.T) {
	h := Headers{}
	h = h.Add("Set-Cookie", "a=1")
	h = h.Add("Set-Cookie", "b=2")
	if len(h) != 2 {
		t.Fatalf("Add should not collapse duplicates, got %v", h)
	}
}

func TestHeadersDel(t *testing.T) {
	h := Headers{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}, {Name: "A", Value: "3"}}
	h = h.Del("a")
	if len(h) != 1 || h[0].Name != "B" {
		t.Fatalf("Del should remove every occurrence case-insensitively, got %v", h)
	}
}

func TestHeadersCloneIndependence(t *testing.T) {
	h := Headers{{Name: "A", Value: "1"}}
	clone := h.Clone()
	clone[0].Value = "2"
	if h[0].Value != "1" {
		t.Fatal("Clone must not alias the original backing array")
	}
}

func TestRequestClone(t *testing.T) {
	req := &Request{Method: "POST", URL: "http://x", Headers: Headers{{Name: "A", Value: "1"}}, Body: []byte("body")}
	clone := req.Clone()
	clone.Headers[0].Value = "changed"
	clone.Body[0] = 'X'
	if req.Headers[0].Value != "1" {
		t.Fatal("Clone must deep-copy headers")
	}
	if req.Body[0] != 'b' {
		t.Fatal("Clone must deep-copy body")
	}
}

func TestResponseCloneDropsExtensions(t *testing.T) {
	resp := &Response{
		Status:     200,
		Headers:    Headers{{Name: "A", Value: "1"}},
		Body:       []byte("body"),
		Extensions: ResponseExtensions{FromCache: true, Revalidated: true},
	}
	clone := resp.Clone()
	if clone.Extensions.FromCache || clone.Extensions.Revalidated {
		t.Fatal("Clone must reset extensions on the copy")
	}
	clone.Headers[0].Value = "changed"
	if resp.Headers[0].Value != "1" {
		t.Fatal("Clone must deep-copy headers")
	}
}

func TestCloneNilSafety(t *testing.T) {
	var req *Request
	var resp *Response
	if req.Clone() != nil {
		t.Fatal("Clone of nil Request must return nil")
	}
	if resp.Clone() != nil {
		t.Fatal("Clone of nil Response must return nil")
	}
}
