package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades a database to version.
type migration struct {
	version int
	stmt    string
}

// migrations run in order against databases whose user_version is below
// the migration's version. Fresh databases get the same objects from
// schema.sql, so every statement must be idempotent.
var migrations = []migration{
	{
		// v1: error counts per run
		version: 1,
		stmt:    `CREATE INDEX IF NOT EXISTS idx_diagnostics_run_kind ON diagnostics(run_id, kind)`,
	},
}

// DefaultBusyTimeout is how long a writer waits on a locked history file.
const DefaultBusyTimeout = 5 * time.Second

// Store records turbine runs in a SQLite database.
// WAL mode lets `turbine history` read while a build is recording.
type Store struct {
	db *sql.DB
}

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	busyTimeout time.Duration
}

// WithBusyTimeout overrides DefaultBusyTimeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *openConfig) {
		if d > 0 {
			c.busyTimeout = d
		}
	}
}

// Open creates or opens the history database at path, applying pragmas,
// the schema and pending migrations. Opening an existing database again is
// a no-op apart from the pragmas.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := openConfig{busyTimeout: DefaultBusyTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect history %s: %w", path, err)
	}

	// One connection: SQLite has a single writer and per-connection pragmas.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := configure(db, cfg); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database. Closing a zero Store is allowed.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Count returns the number of rows in one of the history tables.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	switch table {
	case "runs", "pass_timings", "diagnostics":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func configure(db *sql.DB, cfg openConfig) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("apply %q: %w", p, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	latest := version
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		latest = m.version
	}
	if latest == version {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", latest)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// pragma returns the current value of a pragma.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("query %s: %w", name, err)
	}
	return value, nil
}
