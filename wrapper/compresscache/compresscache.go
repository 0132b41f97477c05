// Package compresscache decorates an httpcache.Storage with automatic
// compression of the serialized entry body, to reduce storage footprint and
// bandwidth to remote backends. Supports gzip, brotli, and snappy.
package compresscache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/veyronhq/httpcache"
)

// Algorithm identifies a compression algorithm.
type Algorithm int

const (
	Gzip Algorithm = iota
	Brotli
	Snappy
)

func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Stats holds compression statistics for a wrapped Storage.
type Stats struct {
	CompressedBytes   int64
	UncompressedBytes int64
	CompressedCount   int64
	UncompressedCount int64
	CompressionRatio  float64
	SavingsPercent    float64
}

type compressFunc func([]byte) ([]byte, error)
type decompressFunc func([]byte) ([]byte, error)

// baseCompressCache implements httpcache.Storage by serializing the entry,
// compressing the bytes, and storing them as the body of a carrier entry in
// the wrapped backend. The first byte of the carrier body is a marker: 0
// means stored uncompressed (compression was attempted and failed), anything
// else is algorithm+1, letting Retrieve decompress with whichever algorithm
// wrote an entry even if the wrapper's own configured algorithm later
// changes.
type baseCompressCache struct {
	storage    httpcache.Storage
	algorithm  Algorithm
	serializer httpcache.Serializer

	compressedBytes   atomic.Int64
	uncompressedBytes atomic.Int64
	compressedCount   atomic.Int64
	uncompressedCount atomic.Int64
}

func newBaseCompressCache(storage httpcache.Storage, algorithm Algorithm) *baseCompressCache {
	return &baseCompressCache{
		storage:    storage,
		algorithm:  algorithm,
		serializer: httpcache.DefaultSerializer,
	}
}

func (c *baseCompressCache) store(ctx context.Context, key string, entry *httpcache.Entry, compressFn compressFunc) error {
	raw, err := c.serializer.Dumps(entry)
	if err != nil {
		return fmt.Errorf("compresscache: serialize: %w", err)
	}

	compressed, err := compressFn(raw)
	var carrier []byte
	if err != nil {
		httpcache.GetLogger().Warn("compression failed, storing uncompressed",
			"key", key, "algorithm", c.algorithm.String(), "error", err)
		carrier = make([]byte, len(raw)+1)
		carrier[0] = 0
		copy(carrier[1:], raw)
		c.uncompressedCount.Add(1)
		c.uncompressedBytes.Add(int64(len(raw)))
	} else {
		carrier = make([]byte, len(compressed)+1)
		carrier[0] = byte(c.algorithm + 1)
		copy(carrier[1:], compressed)
		c.compressedCount.Add(1)
		c.compressedBytes.Add(int64(len(compressed)))
		c.uncompressedBytes.Add(int64(len(raw)))
	}

	return c.storage.Store(ctx, key, &httpcache.Entry{
		Response: &httpcache.Response{Body: carrier},
		Request:  &httpcache.Request{},
	})
}

func (c *baseCompressCache) retrieve(ctx context.Context, key string, decompressFn decompressFunc) (*httpcache.Entry, error) {
	carrier, err := c.storage.Retrieve(ctx, key)
	if err != nil {
		return nil, err
	}
	if carrier == nil || len(carrier.Response.Body) == 0 {
		return nil, nil
	}

	data := carrier.Response.Body
	marker := data[0]
	var raw []byte
	if marker == 0 {
		raw = data[1:]
	} else {
		storedAlgo := Algorithm(marker - 1)
		raw, err = c.decompressWithAlgorithm(data[1:], storedAlgo, decompressFn)
		if err != nil {
			httpcache.GetLogger().Warn("decompression failed",
				"key", key, "algorithm", storedAlgo.String(), "error", err)
			return nil, nil
		}
	}

	entry, err := c.serializer.Loads(raw)
	if err != nil {
		httpcache.GetLogger().Debug("compresscache: corrupt entry treated as absent", "key", key, "error", err)
		return nil, nil
	}
	return entry, nil
}

// decompressWithAlgorithm decompresses with the algorithm this instance was
// built for if it matches, otherwise falls back to whichever codec actually
// wrote the entry, so switching a deployment's configured algorithm doesn't
// strand previously-written entries.
func (c *baseCompressCache) decompressWithAlgorithm(data []byte, algorithm Algorithm, decompressFn decompressFunc) ([]byte, error) {
	if algorithm == c.algorithm {
		return decompressFn(data)
	}
	return decompressAny(data, algorithm)
}

func decompressAny(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case Gzip:
		return gzipDecompress(data)
	case Brotli:
		return brotliDecompress(data)
	case Snappy:
		return snappyDecompress(data)
	default:
		return nil, fmt.Errorf("compresscache: unsupported algorithm %v", algorithm)
	}
}

func (c *baseCompressCache) deleteKey(ctx context.Context, key string) error {
	deleter, ok := c.storage.(httpcache.Deleter)
	if !ok {
		return nil
	}
	return deleter.Delete(ctx, key)
}

func (c *baseCompressCache) close() error {
	return c.storage.Close()
}

func (c *baseCompressCache) stats() Stats {
	compressed := c.compressedBytes.Load()
	uncompressed := c.uncompressedBytes.Load()

	var ratio, savings float64
	if uncompressed > 0 {
		ratio = float64(compressed) / float64(uncompressed)
		savings = (1.0 - ratio) * 100
	}

	return Stats{
		CompressedBytes:   compressed,
		UncompressedBytes: uncompressed,
		CompressedCount:   c.compressedCount.Load(),
		UncompressedCount: c.uncompressedCount.Load(),
		CompressionRatio:  ratio,
		SavingsPercent:    savings,
	}
}
