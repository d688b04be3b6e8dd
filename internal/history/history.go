// Package history persists finished run results. The engine core never
// touches it: recording runs, applying experience and trimming old entries
// are caller responsibilities, and this store is the default collaborator
// the daemon and CLI use for them.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Config holds store connection configuration
type Config struct {
	// Driver selects the backend: "sqlite" (default) or "postgres"
	Driver string `yaml:"driver"`

	// SQLitePath is the database file path for the sqlite backend
	SQLitePath string `yaml:"sqlite_path"`

	// PostgresDSN is the connection string for the postgres backend
	PostgresDSN string `yaml:"postgres_dsn"`

	// KeepPerAgent bounds how many runs Trim retains per agent
	KeepPerAgent int `yaml:"keep_per_agent"`
}

// DefaultConfig returns a Config with sqlite defaults
func DefaultConfig(sqlitePath string) Config {
	return Config{
		Driver:       string(DialectSQLite),
		SQLitePath:   sqlitePath,
		KeepPerAgent: 20,
	}
}

// Store wraps the SQL connection and provides run persistence
type Store struct {
	db           *sql.DB
	dialect      Dialect
	keepPerAgent int
}

// Open opens or creates the run history store
func Open(cfg Config) (*Store, error) {
	dialect := NewDialect(DialectType(cfg.Driver))

	var dsn string
	switch dialect.DriverName() {
	case "postgres":
		dsn = cfg.PostgresDSN
	default:
		dir := filepath.Dir(cfg.SQLitePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("history: create database directory: %w", err)
		}
		dsn = cfg.SQLitePath
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: init statement %q: %w", stmt, err)
		}
	}

	keep := cfg.KeepPerAgent
	if keep <= 0 {
		keep = DefaultConfig("").KeepPerAgent
	}

	s := &Store{db: db, dialect: dialect, keepPerAgent: keep}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: run migrations: %w", err)
	}

	return s, nil
}

// Close closes the store
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema if it doesn't exist
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			agent_level INTEGER NOT NULL DEFAULT 1,
			seed BIGINT NOT NULL,
			length_category TEXT NOT NULL,
			tier TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			cells_completed INTEGER NOT NULL DEFAULT 0,
			total_time DOUBLE PRECISION NOT NULL DEFAULT 0,
			score DOUBLE PRECISION NOT NULL DEFAULT 0,
			experience INTEGER NOT NULL DEFAULT 0,
			stat_deltas TEXT NOT NULL DEFAULT '{}',
			achievements TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_agent ON runs(agent_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_score ON runs(agent_id, tier, score)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// now is stubbed in tests
var now = time.Now
