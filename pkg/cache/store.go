package cache

import (
	"context"
	"errors"
	"time"

	"github.com/cd-Crypton/anistream/pkg/proxy/types"
)

// ErrClosed is returned by stores after Close.
var ErrClosed = errors.New("cache store is closed")

// Entry is a stored response with its freshness window.
type Entry struct {
	// Key is the canonical key the entry was stored under.
	Key Key

	// Response is the stored response. It must not be modified.
	Response *types.Response

	// StoredAt is when the entry was written.
	StoredAt time.Time

	// ExpiresAt is StoredAt plus the response's max-age.
	ExpiresAt time.Time
}

// Expired reports whether the entry is stale at now.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store is the shared edge cache. Implementations are safe for concurrent
// use; every method is a single independent operation and callers never
// rely on atomicity across calls.
//
// Entries expire passively: Get never returns an expired entry. There is no
// delete operation.
type Store interface {
	// Get returns the fresh entry stored under key, if any.
	Get(ctx context.Context, key Key) (*Entry, bool, error)

	// Put stores resp under key. The entry's lifetime is taken from the
	// response's Cache-Control max-age.
	Put(ctx context.Context, key Key, resp *types.Response) error

	// Len returns the number of fresh entries.
	Len(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// Purger is implemented by stores that can reclaim space held by entries
// that have already expired. Purging never removes a fresh entry.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
