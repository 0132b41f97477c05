package multicache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veyronhq/httpcache"
)

func testEntry(body string) *httpcache.Entry {
	return &httpcache.Entry{
		Response: &httpcache.Response{Status: 200, Body: []byte(body)},
		Request:  &httpcache.Request{Method: "GET", URL: "http://example.com"},
	}
}

func TestNewRejectsEmptyOrNilTiers(t *testing.T) {
	assert.Nil(t, New())
	assert.Nil(t, New(httpcache.NewEvictionCache(4), nil))
}

func TestNewBuildsOverValidTiers(t *testing.T) {
	mc := New(httpcache.NewEvictionCache(4), httpcache.NewEvictionCache(4))
	require.NotNil(t, mc)
	assert.Len(t, mc.tiers, 2)
}

func TestStoreWritesAllTiers(t *testing.T) {
	ctx := context.Background()
	tier1 := httpcache.NewEvictionCache(4)
	tier2 := httpcache.NewEvictionCache(4)
	mc := New(tier1, tier2)
	require.NotNil(t, mc)

	require.NoError(t, mc.Store(ctx, "key1", testEntry("value1")))

	e1, err := tier1.Retrieve(ctx, "key1")
	require.NoError(t, err)
	require.NotNil(t, e1)
	assert.Equal(t, "value1", string(e1.Response.Body))

	e2, err := tier2.Retrieve(ctx, "key1")
	require.NoError(t, err)
	require.NotNil(t, e2)
}

func TestRetrieveFoundInMiddleTierPromotesToFaster(t *testing.T) {
	ctx := context.Background()
	tier1 := httpcache.NewEvictionCache(4)
	tier2 := httpcache.NewEvictionCache(4)
	tier3 := httpcache.NewEvictionCache(4)
	mc := New(tier1, tier2, tier3)
	require.NotNil(t, mc)

	require.NoError(t, tier2.Store(ctx, "key1", testEntry("value1")))

	entry, err := mc.Retrieve(ctx, "key1")
	require.NoError(t, err)
	require.NotNil(t, entry)

	promoted, err := tier1.Retrieve(ctx, "key1")
	require.NoError(t, err)
	require.NotNil(t, promoted, "entry found in tier2 must be promoted to tier1")

	_, err = tier3.Retrieve(ctx, "key1")
	require.NoError(t, err)
}

func TestRetrieveNotFoundAnywhere(t *testing.T) {
	ctx := context.Background()
	mc := New(httpcache.NewEvictionCache(4), httpcache.NewEvictionCache(4))
	require.NotNil(t, mc)

	entry, err := mc.Retrieve(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestDeleteRemovesFromEveryTier(t *testing.T) {
	ctx := context.Background()
	tier1 := httpcache.NewEvictionCache(4)
	tier2 := httpcache.NewEvictionCache(4)
	mc := New(tier1, tier2)
	require.NotNil(t, mc)

	require.NoError(t, mc.Store(ctx, "key1", testEntry("value1")))
	require.NoError(t, mc.Delete(ctx, "key1"))

	e1, _ := tier1.Retrieve(ctx, "key1")
	assert.Nil(t, e1)
	e2, _ := tier2.Retrieve(ctx, "key1")
	assert.Nil(t, e2)
}

type failingCloser struct {
	httpcache.Storage
	err error
}

func (f failingCloser) Close() error { return f.err }

func TestCloseAggregatesFirstError(t *testing.T) {
	mc := New(httpcache.NewEvictionCache(4), httpcache.NewEvictionCache(4))
	require.NotNil(t, mc)
	assert.NoError(t, mc.Close())

	errFirst := errors.New("first tier close failed")
	errSecond := errors.New("second tier close failed")
	failing := New(
		failingCloser{Storage: httpcache.NewEvictionCache(4), err: errFirst},
		failingCloser{Storage: httpcache.NewEvictionCache(4), err: errSecond},
	)
	require.NotNil(t, failing)
	assert.Equal(t, errFirst, failing.Close())
}
