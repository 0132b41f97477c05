package httpcache

import (
	"context"
	"errors"
)

// Errors returned by Storage implementations and the orchestrator built on
// top of them. CorruptEntry and absent-key conditions are NOT represented
// as errors: Retrieve returns (nil, nil) for those, per the "absent" model
// described in the storage contract.
var (
	// ErrStorageUnavailable signals a backend I/O failure distinct from a
	// plain cache miss; callers must not treat it as "absent".
	ErrStorageUnavailable = errors.New("httpcache: storage unavailable")

	// ErrMisconfiguredBackend signals that a required dependency or
	// credential is missing. The backend constructors in this module do not
	// return it; they report missing configuration with their own errors.
	ErrMisconfiguredBackend = errors.New("httpcache: misconfigured backend")
)

// Storage is the contract every cache backend implements: admit, retrieve
// and close. There is deliberately no Delete — a key is replaced by
// admitting a new entry, never removed mid-flight, mirroring the storage
// model this module is grounded on.
type Storage interface {
	// Store admits entry under key, replacing any prior entry atomically:
	// concurrent retrievals observe either the previous entry in full or
	// the new one, never a partial write.
	Store(ctx context.Context, key string, entry *Entry) error

	// Retrieve returns the entry stored under key, or (nil, nil) if the key
	// is unknown, the stored payload is empty/corrupt, or the entry has
	// exceeded the backend's TTL.
	Retrieve(ctx context.Context, key string) (*Entry, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Deleter is an optional capability a Storage backend may implement to
// support RFC 9111 §4.4 cache invalidation on unsafe methods. It is
// deliberately not part of the Storage contract itself — hishel's
// BaseStorage, which Storage is grounded on, has no delete operation, and a
// key is normally replaced by admitting a new entry, never removed
// mid-flight. Backends that can cheaply support removal implement this
// interface; CacheWrapper type-asserts for it and degrades to a no-op
// (logged) when a backend doesn't.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}
