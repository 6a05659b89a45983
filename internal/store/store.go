package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is the render log: an append-only SQLite table of render passes
// and their per-level comments. Writes are serialized on a single
// connection; readers see a consistent log through WAL.
type Store struct {
	db *sql.DB
}

// logPragmas configure every connection to the render log.
var logPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// migration upgrades a render log created by an older schema. The index of
// a migration in migrations is the user_version it produces, minus one.
type migration func(*sql.DB) error

var migrations = []migration{
	// v1: fingerprint lookups for the engine's determinism check.
	func(db *sql.DB) error {
		_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_renders_fingerprint ON renders(fingerprint, seq)`)
		return err
	},
}

// Open opens the render log at path, creating the file and tables on first
// use and upgrading older logs. Opening the same path again is safe.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open render log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open render log %s: %w", path, err)
	}

	// One writer; a render append spans renders and render_comments.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepareLog(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// prepareLog applies pragmas, the base schema and pending migrations.
func prepareLog(db *sql.DB) error {
	for _, pragma := range logPragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("render log: %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("render log: schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("render log: read user_version: %w", err)
	}
	for v := version; v < len(migrations); v++ {
		if err := migrations[v](db); err != nil {
			return fmt.Errorf("render log: migrate to v%d: %w", v+1, err)
		}
	}
	if version < len(migrations) {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
			return fmt.Errorf("render log: set user_version: %w", err)
		}
	}
	return nil
}

// Close releases the render log.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// verifyPragma reports whether a pragma holds the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
