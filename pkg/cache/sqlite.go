package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure Go driver, registered as "sqlite"

	"github.com/cd-Crypton/anistream/pkg/proxy/types"
)

const (
	// DriverModernc selects the pure Go driver.
	DriverModernc = "sqlite"

	// DriverMattn selects the cgo driver.
	DriverMattn = "sqlite3"
)

// SQLiteConfig configures a SQLiteStore.
type SQLiteConfig struct {
	// Path is the database file. Parent directories are created.
	Path string

	// Driver is DriverModernc or DriverMattn.
	// Default: DriverModernc
	Driver string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// MaxOpenConns bounds the connection pool.
	// Default: 1
	MaxOpenConns int
}

// SQLiteStore is a persistent Store. Entries survive restarts and can be
// shared by several processes on one host.
type SQLiteStore struct {
	db        *sql.DB
	driver    string
	path      string
	logger    *slog.Logger
	closeOnce sync.Once

	now func() time.Time

	putStmt   *sql.Stmt
	getStmt   *sql.Stmt
	lenStmt   *sql.Stmt
	purgeStmt *sql.Stmt
}

// NewSQLiteStore opens (or creates) the cache database.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 1
	}

	dsn, err := sqliteDSN(cfg)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:     db,
		driver: cfg.Driver,
		path:   cfg.Path,
		now:    time.Now,
		logger: slog.Default().With("component", "cache.sqlite"),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	s.logger.Info("SQLite cache initialized",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return s, nil
}

// sqliteDSN builds the connection string. The two drivers spell pragmas
// differently.
func sqliteDSN(cfg SQLiteConfig) (string, error) {
	ms := cfg.BusyTimeout.Milliseconds()
	switch cfg.Driver {
	case DriverModernc:
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
			cfg.Path, ms), nil
	case DriverMattn:
		return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
			cfg.Path, ms), nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", cfg.Driver)
	}
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS edge_cache (
		key_digest TEXT PRIMARY KEY,
		cache_key TEXT NOT NULL,
		status INTEGER NOT NULL,
		header TEXT NOT NULL,
		body BLOB,
		stored_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_edge_cache_expires_at ON edge_cache(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO edge_cache (key_digest, cache_key, status, header, body, stored_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (key_digest) DO UPDATE SET
			cache_key = excluded.cache_key,
			status = excluded.status,
			header = excluded.header,
			body = excluded.body,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare put statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT status, header, body, stored_at, expires_at
		FROM edge_cache
		WHERE key_digest = ? AND expires_at > ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.lenStmt, err = s.db.Prepare(`
		SELECT COUNT(*) FROM edge_cache WHERE expires_at > ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare len statement: %w", err)
	}

	s.purgeStmt, err = s.db.Prepare(`
		DELETE FROM edge_cache WHERE expires_at <= ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare purge statement: %w", err)
	}

	return nil
}

// Get returns the fresh entry for key.
func (s *SQLiteStore) Get(ctx context.Context, key Key) (*Entry, bool, error) {
	var (
		status    int
		headerRaw string
		body      []byte
		storedAt  int64
		expiresAt int64
	)

	err := s.getStmt.QueryRowContext(ctx, key.Digest(), s.now().UnixNano()).
		Scan(&status, &headerRaw, &body, &storedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load cache entry: %w", err)
	}

	header := make(http.Header)
	if err := json.Unmarshal([]byte(headerRaw), &header); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached header: %w", err)
	}
	if body == nil {
		body = []byte{}
	}

	return &Entry{
		Key:       key,
		Response:  types.NewResponse(status, header, body),
		StoredAt:  time.Unix(0, storedAt),
		ExpiresAt: time.Unix(0, expiresAt),
	}, true, nil
}

// Put upserts the entry for key.
func (s *SQLiteStore) Put(ctx context.Context, key Key, resp *types.Response) error {
	headerJSON, err := json.Marshal(resp.Header)
	if err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}

	now := s.now()
	_, err = s.putStmt.ExecContext(ctx,
		key.Digest(),
		key.String(),
		resp.StatusCode,
		string(headerJSON),
		resp.Body,
		now.UnixNano(),
		now.Add(lifetime(resp)).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

// Len returns the number of fresh rows.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.lenStmt.QueryRowContext(ctx, s.now().UnixNano()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// PurgeExpired deletes rows that are no longer fresh.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.purgeStmt.ExecContext(ctx, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache entries: %w", err)
	}
	return result.RowsAffected()
}

// Close releases statements and the database. It is idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.putStmt, s.getStmt, s.lenStmt, s.purgeStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		closeErr = s.db.Close()
	})

	return closeErr
}
