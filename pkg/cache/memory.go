package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cd-Crypton/anistream/pkg/proxy/types"
)

// MemoryStore is an in-process Store bounded by entry count.
//
// When full, expired entries are dropped first and then the entry closest
// to expiry is evicted to make room.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[Key]*Entry
	maxEntries int
	closed     bool

	now    func() time.Time
	logger *slog.Logger
}

// NewMemoryStore creates an in-memory store. maxEntries <= 0 means unbounded.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[Key]*Entry),
		maxEntries: maxEntries,
		now:        time.Now,
		logger:     slog.Default().With("component", "cache.memory"),
	}
}

// Get returns the fresh entry for key.
func (s *MemoryStore) Get(ctx context.Context, key Key) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, ErrClosed
	}

	entry, ok := s.entries[key]
	if !ok || entry.Expired(s.now()) {
		return nil, false, nil
	}
	return entry, true, nil
}

// Put stores a private copy of resp under key.
func (s *MemoryStore) Put(ctx context.Context, key Key, resp *types.Response) error {
	now := s.now()
	entry := &Entry{
		Key:       key,
		Response:  resp.Clone(),
		StoredAt:  now,
		ExpiresAt: now.Add(lifetime(resp)),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if _, exists := s.entries[key]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.purgeLocked(now)
		if len(s.entries) >= s.maxEntries {
			s.evictLocked()
		}
	}

	s.entries[key] = entry
	return nil
}

// Len returns the number of fresh entries.
func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	n := 0
	for _, e := range s.entries {
		if !e.Expired(now) {
			n++
		}
	}
	return n, nil
}

// PurgeExpired removes entries that are already stale.
func (s *MemoryStore) PurgeExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	return s.purgeLocked(s.now()), nil
}

// Close drops all entries.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.entries = make(map[Key]*Entry)
	return nil
}

func (s *MemoryStore) purgeLocked(now time.Time) int64 {
	var removed int64
	for k, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// evictLocked removes the entry that would expire first.
func (s *MemoryStore) evictLocked() {
	var victim Key
	var soonest time.Time
	first := true

	for k, e := range s.entries {
		if first || e.ExpiresAt.Before(soonest) {
			victim = k
			soonest = e.ExpiresAt
			first = false
		}
	}

	if !first {
		delete(s.entries, victim)
		s.logger.Debug("evicted cache entry", "key", victim.String())
	}
}
