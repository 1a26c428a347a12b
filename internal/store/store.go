// Package store persists tokens, cached quotes, swap intents and explanation
// history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	lock *flock.Flock
	now  func() time.Time
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chain_id INTEGER NOT NULL,
		address TEXT NOT NULL,
		symbol TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		decimals INTEGER NOT NULL DEFAULT 18,
		logo_uri TEXT NOT NULL DEFAULT '',
		is_native INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (chain_id, address)
	);`,
	`CREATE TABLE IF NOT EXISTS quote_cache (
		cache_key TEXT PRIMARY KEY,
		chain_id INTEGER NOT NULL,
		src_token_id INTEGER NOT NULL REFERENCES tokens(id) ON DELETE CASCADE,
		dst_token_id INTEGER NOT NULL REFERENCES tokens(id) ON DELETE CASCADE,
		amount_wei TEXT NOT NULL,
		price_impact_bps TEXT NOT NULL DEFAULT '0.0000',
		gas_estimate TEXT NOT NULL DEFAULT '',
		route_summary TEXT NOT NULL DEFAULT '',
		raw_response BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS swap_intents (
		id TEXT PRIMARY KEY,
		wallet_address TEXT NOT NULL,
		chain_id INTEGER NOT NULL,
		src_token_id INTEGER NOT NULL REFERENCES tokens(id) ON DELETE RESTRICT,
		dst_token_id INTEGER NOT NULL REFERENCES tokens(id) ON DELETE RESTRICT,
		amount TEXT NOT NULL,
		amount_wei TEXT NOT NULL,
		slippage_bps INTEGER NOT NULL DEFAULT 50,
		status TEXT NOT NULL,
		tx_hash TEXT NOT NULL DEFAULT '',
		route_summary TEXT NOT NULL DEFAULT '',
		risk_level TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	"CREATE INDEX IF NOT EXISTS idx_swap_intents_wallet ON swap_intents(wallet_address, created_at DESC);",
	"CREATE INDEX IF NOT EXISTS idx_swap_intents_status ON swap_intents(status, updated_at DESC);",
	`CREATE TABLE IF NOT EXISTS explanations (
		id TEXT PRIMARY KEY,
		intent_id TEXT NOT NULL REFERENCES swap_intents(id) ON DELETE CASCADE,
		model TEXT NOT NULL,
		prompt TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		meta BLOB,
		created_at INTEGER NOT NULL
	);`,
	"CREATE INDEX IF NOT EXISTS idx_explanations_intent ON explanations(intent_id, created_at);",
	`CREATE TABLE IF NOT EXISTS swap_requests (
		id TEXT PRIMARY KEY,
		src_symbol TEXT NOT NULL,
		dst_symbol TEXT NOT NULL,
		amount TEXT NOT NULL,
		risk_level TEXT NOT NULL,
		explanation TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`,
}

func Open(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	if lockPath == "" {
		lockPath = path + ".lock"
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	// Pragmas go in the DSN so that every pooled connection enforces foreign keys.
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	for _, q := range schema {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init store schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(lockPath), now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withWriteLock serialises writers within the process and across processes
// sharing the same database file.
func (s *Store) withWriteLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	locked, err := s.lock.TryLockContext(lockCtx, 25*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock store: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock store: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

func (s *Store) nowUnix() int64 {
	return s.now().UTC().Unix()
}

func fromUnix(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}

// classify turns constraint failures into the package's sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", ErrReferenced, err)
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		}
	}
	return err
}
