package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/nhle/theora/internal/metrics"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string, log zerolog.Logger) (*SQLiteStore, error) {
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection: every caller shares the same database, including
	// ":memory:" where each connection would otherwise get its own.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, log: log.With().Str("component", "store").Logger()}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Write encodes value as JSON and upserts it under key.
func (s *SQLiteStore) Write(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return s.fail("write", key, fmt.Errorf("encoding value: %w", err))
	}

	_, err = s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return s.fail("write", key, err)
	}
	return nil
}

// ReadInto decodes the value under key into dst. Any failure is logged and
// reported as absence.
func (s *SQLiteStore) ReadInto(key string, dst any) bool {
	var raw string
	err := s.db.Get(&raw, "SELECT value FROM kv WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("read").Inc()
		s.log.Error().Err(err).Str("key", key).Msg("reading local value")
		return false
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("discarding undecodable local value")
		return false
	}
	return true
}

// Remove deletes key.
func (s *SQLiteStore) Remove(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return s.fail("remove", key, err)
	}
	return nil
}

// ClearAll removes every listed key in a single transaction.
func (s *SQLiteStore) ClearAll(keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return s.fail("clear", "", fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	query, args, err := sqlx.In("DELETE FROM kv WHERE key IN (?)", keys)
	if err != nil {
		return s.fail("clear", "", fmt.Errorf("building delete: %w", err))
	}
	if _, err := tx.Exec(tx.Rebind(query), args...); err != nil {
		return s.fail("clear", "", err)
	}
	if err := tx.Commit(); err != nil {
		return s.fail("clear", "", fmt.Errorf("committing: %w", err))
	}
	return nil
}

// Keys returns every stored key with the given prefix, in lexical order.
func (s *SQLiteStore) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.Select(&keys,
		"SELECT key FROM kv WHERE instr(key, ?) = 1 ORDER BY key",
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	return keys, nil
}

func (s *SQLiteStore) fail(op, key string, err error) error {
	metrics.PersistenceFailures.WithLabelValues(op).Inc()
	perr := &PersistenceError{Op: op, Key: key, Err: err}
	s.log.Error().Err(err).Str("op", op).Str("key", key).Msg("local store operation failed")
	return perr
}
