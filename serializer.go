package httpcache

import "encoding/json"

// Serializer encodes and decodes a stored Entry. The round trip must
// preserve status, header order and duplicates, header byte values, body
// bytes, and every Metadata field.
type Serializer interface {
	Dumps(entry *Entry) ([]byte, error)
	Loads(data []byte) (*Entry, error)
	// IsBinary reports whether Dumps produces opaque bytes (true) or
	// UTF-8 text (false). Backends that expose a text column can use this
	// to decide whether to base64-wrap the payload.
	IsBinary() bool
}

type wireHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type wireRequest struct {
	Method  string       `json:"method"`
	URL     string       `json:"url"`
	Headers []wireHeader `json:"headers"`
	Body    []byte       `json:"body,omitempty"`
}

type wireResponse struct {
	Status  int          `json:"status"`
	Headers []wireHeader `json:"headers"`
	Body    []byte       `json:"body"`
}

type wireEntry struct {
	Response     wireResponse `json:"response"`
	Request      wireRequest  `json:"request"`
	CacheKey     string       `json:"cache_key"`
	CreatedAt    int64        `json:"created_at"`
	NumberOfUses int64        `json:"number_of_uses"`
}

// JSONSerializer is the default Serializer, storing entries as UTF-8 JSON.
type JSONSerializer struct{}

func (JSONSerializer) IsBinary() bool { return false }

func (JSONSerializer) Dumps(entry *Entry) ([]byte, error) {
	w := wireEntry{
		Response: wireResponse{
			Status:  entry.Response.Status,
			Headers: toWireHeaders(entry.Response.Headers),
			Body:    entry.Response.Body,
		},
		Request: wireRequest{
			Method:  entry.Request.Method,
			URL:     entry.Request.URL,
			Headers: toWireHeaders(entry.Request.Headers),
			Body:    entry.Request.Body,
		},
		CacheKey:     entry.Metadata.CacheKey,
		CreatedAt:    entry.Metadata.CreatedAt,
		NumberOfUses: entry.Metadata.NumberOfUses,
	}
	return json.Marshal(w)
}

func (JSONSerializer) Loads(data []byte) (*Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &Entry{
		Response: &Response{
			Status:  w.Response.Status,
			Headers: fromWireHeaders(w.Response.Headers),
			Body:    w.Response.Body,
		},
		Request: &Request{
			Method:  w.Request.Method,
			URL:     w.Request.URL,
			Headers: fromWireHeaders(w.Request.Headers),
			Body:    w.Request.Body,
		},
		Metadata: Metadata{
			CacheKey:     w.CacheKey,
			CreatedAt:    w.CreatedAt,
			NumberOfUses: w.NumberOfUses,
		},
	}, nil
}

func toWireHeaders(h Headers) []wireHeader {
	out := make([]wireHeader, len(h))
	for i, kv := range h {
		out[i] = wireHeader{Name: kv.Name, Value: kv.Value}
	}
	return out
}

func fromWireHeaders(w []wireHeader) Headers {
	out := make(Headers, len(w))
	for i, kv := range w {
		out[i] = Header{Name: kv.Name, Value: kv.Value}
	}
	return out
}

// DefaultSerializer is used by backends that accept no explicit Serializer.
var DefaultSerializer Serializer = JSONSerializer{}
