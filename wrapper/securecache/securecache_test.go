package securecache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veyronhq/httpcache"
)

type memStorage struct {
	mu    sync.Mutex
	items map[string]*httpcache.Entry
}

func newMemStorage() *memStorage {
	return &memStorage{items: make(map[string]*httpcache.Entry)}
}

func (s *memStorage) Store(_ context.Context, key string, entry *httpcache.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = entry
	return nil
}

func (s *memStorage) Retrieve(_ context.Context, key string) (*httpcache.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[key], nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *memStorage) Close() error { return nil }

func (s *memStorage) hasRawKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[key]
	return ok
}

var _ httpcache.Storage = (*memStorage)(nil)
var _ httpcache.Deleter = (*memStorage)(nil)

// notADeleter wraps memStorage but deliberately hides the Deleter capability
// (embedding would promote Delete, so methods are forwarded explicitly).
type notADeleter struct {
	inner *memStorage
}

func (s notADeleter) Store(ctx context.Context, key string, entry *httpcache.Entry) error {
	return s.inner.Store(ctx, key, entry)
}

func (s notADeleter) Retrieve(ctx context.Context, key string) (*httpcache.Entry, error) {
	return s.inner.Retrieve(ctx, key)
}

func (s notADeleter) Close() error { return s.inner.Close() }

var _ httpcache.Storage = notADeleter{}

func testEntry(body string) *httpcache.Entry {
	return &httpcache.Entry{
		Response: &httpcache.Response{Status: 200, Body: []byte(body)},
		Request:  &httpcache.Request{Method: "GET", URL: "http://example.com"},
	}
}

func TestNewRejectsNilStorage(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNewWithoutPassphraseIsNotEncrypted(t *testing.T) {
	c, err := New(Config{Storage: newMemStorage()})
	require.NoError(t, err)
	assert.False(t, c.IsEncrypted())
}

func TestNewWithPassphraseIsEncrypted(t *testing.T) {
	c, err := New(Config{Storage: newMemStorage(), Passphrase: "correct-horse-battery-staple"})
	require.NoError(t, err)
	assert.True(t, c.IsEncrypted())
}

func TestStoreRetrieveRoundTripWithoutEncryption(t *testing.T) {
	ctx := context.Background()
	c, err := New(Config{Storage: newMemStorage()})
	require.NoError(t, err)

	require.NoError(t, c.Store(ctx, "https://example.com/a", testEntry("plain body")))
	got, err := c.Retrieve(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "plain body", string(got.Response.Body))
}

func TestStoreRetrieveRoundTripWithEncryption(t *testing.T) {
	ctx := context.Background()
	inner := newMemStorage()
	c, err := New(Config{Storage: inner, Passphrase: "correct-horse-battery-staple"})
	require.NoError(t, err)

	require.NoError(t, c.Store(ctx, "https://example.com/a", testEntry("secret body")))

	got, err := c.Retrieve(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "secret body", string(got.Response.Body))
}

func TestStoreHashesTheCacheKey(t *testing.T) {
	ctx := context.Background()
	inner := newMemStorage()
	c, err := New(Config{Storage: inner})
	require.NoError(t, err)

	plainKey := "https://example.com/a"
	require.NoError(t, c.Store(ctx, plainKey, testEntry("body")))

	assert.False(t, inner.hasRawKey(plainKey), "the plaintext key must never reach the underlying backend")
	assert.True(t, inner.hasRawKey(httpcache.HashKey(plainKey)))
}

func TestRetrieveWithWrongPassphraseFailsClosed(t *testing.T) {
	ctx := context.Background()
	inner := newMemStorage()
	writer, err := New(Config{Storage: inner, Passphrase: "passphrase-one"})
	require.NoError(t, err)
	require.NoError(t, writer.Store(ctx, "key1", testEntry("body")))

	reader, err := New(Config{Storage: inner, Passphrase: "passphrase-two"})
	require.NoError(t, err)

	got, err := reader.Retrieve(ctx, "key1")
	require.NoError(t, err)
	assert.Nil(t, got, "a decryption failure must be treated as a cache miss, not an error")
}

func TestRetrieveMissReturnsNilNil(t *testing.T) {
	c, err := New(Config{Storage: newMemStorage()})
	require.NoError(t, err)

	got, err := c.Retrieve(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteUsesHashedKey(t *testing.T) {
	ctx := context.Background()
	inner := newMemStorage()
	c, err := New(Config{Storage: inner})
	require.NoError(t, err)

	require.NoError(t, c.Store(ctx, "key1", testEntry("body")))
	require.NoError(t, c.Delete(ctx, "key1"))

	got, err := c.Retrieve(ctx, "key1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteNoOpsWhenInnerStorageIsNotADeleter(t *testing.T) {
	inner := notADeleter{inner: newMemStorage()}
	c, err := New(Config{Storage: inner})
	require.NoError(t, err)

	err = c.Delete(context.Background(), "key1")
	assert.NoError(t, err)
}
