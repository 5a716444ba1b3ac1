package cache

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T, driver string) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(SQLiteConfig{
		Path:   filepath.Join(t.TempDir(), "nested", "cache.db"),
		Driver: driver,
	})
	if err != nil {
		if driver == DriverMattn {
			t.Skipf("cgo sqlite driver unavailable: %v", err)
		}
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	for _, driver := range []string{DriverModernc, DriverMattn} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s := newTestSQLiteStore(t, driver)
			key := NewKey("GET", "/discover/tv", "page=1")

			if _, ok, err := s.Get(ctx, key); ok || err != nil {
				t.Fatalf("Get() on empty store = %v, %v", ok, err)
			}

			if err := s.Put(ctx, key, cachedResponse(`{"page":1}`)); err != nil {
				if driver == DriverMattn {
					t.Skipf("cgo sqlite driver unavailable: %v", err)
				}
				t.Fatalf("Put() error = %v", err)
			}

			entry, ok, err := s.Get(ctx, key)
			if err != nil || !ok {
				t.Fatalf("Get() = %v, %v", ok, err)
			}
			if entry.Response.StatusCode != http.StatusOK {
				t.Errorf("StatusCode = %d", entry.Response.StatusCode)
			}
			if entry.Response.Header.Get("Cache-Control") != Policy {
				t.Errorf("Cache-Control = %q", entry.Response.Header.Get("Cache-Control"))
			}
			if string(entry.Response.Body) != `{"page":1}` {
				t.Errorf("Body = %q", entry.Response.Body)
			}
			if !entry.ExpiresAt.Equal(entry.StoredAt.Add(time.Hour)) {
				t.Errorf("ExpiresAt = %v, StoredAt = %v", entry.ExpiresAt, entry.StoredAt)
			}

			if n, err := s.Len(ctx); err != nil || n != 1 {
				t.Errorf("Len() = %d, %v", n, err)
			}
		})
	}
}

func TestSQLiteStore_ExpiryAndPurge(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	s := newTestSQLiteStore(t, DriverModernc)
	s.now = clock.Now

	key := NewKey("GET", "/tv/1399", "")
	if err := s.Put(ctx, key, cachedResponse("{}")); err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Hour)

	if _, ok, _ := s.Get(ctx, key); ok {
		t.Fatal("expired entry served")
	}

	removed, err := s.PurgeExpired(ctx)
	if err != nil || removed != 1 {
		t.Errorf("PurgeExpired() = %d, %v; want 1, nil", removed, err)
	}
}

func TestSQLiteStore_Upsert(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t, DriverModernc)
	key := NewKey("GET", "/tv/1", "")

	_ = s.Put(ctx, key, cachedResponse("a"))
	if err := s.Put(ctx, key, cachedResponse("b")); err != nil {
		t.Fatal(err)
	}

	entry, ok, _ := s.Get(ctx, key)
	if !ok || string(entry.Response.Body) != "b" {
		t.Fatalf("Get() = %v", ok)
	}
	if n, _ := s.Len(ctx); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func TestSQLiteStore_Persistent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := NewSQLiteStore(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	key := NewKey("GET", "/configuration", "")
	if err := s.Put(ctx, key, cachedResponse("cfg")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reopened, err := NewSQLiteStore(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	entry, ok, err := reopened.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get() after reopen = %v, %v", ok, err)
	}
	if string(entry.Response.Body) != "cfg" {
		t.Errorf("Body = %q", entry.Response.Body)
	}
}

func TestSQLiteStore_UnknownDriver(t *testing.T) {
	_, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "x.db"), Driver: "postgres"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSQLiteStore_CloseIdempotent(t *testing.T) {
	s := newTestSQLiteStore(t, DriverModernc)
	if err := s.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
