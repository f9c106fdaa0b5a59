package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (no uniqueness on review periods)
// 1 - Duplicate review rows removed, UNIQUE index on review periods
const currentSchemaVersion = 1

var (
	// ErrDuplicateRecord reports more than one record for one period.
	ErrDuplicateRecord = errors.New("duplicate review records for period")

	// ErrProfileNotFound reports a missing owner profile.
	ErrProfileNotFound = errors.New("profile not found")
)

// Store provides durable storage for review records and profiles.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db     *sql.DB
	newID  func() string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides record id generation (default UUIDv7).
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// WithLogger sets the logger used for migration reports.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func uuidV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//   - BEGIN IMMEDIATE transactions, so a writer waits on busy_timeout
//     instead of failing when another process holds the write lock
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{newID: uuidV7, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time. A single connection also
	// serializes every upsert transaction in this process.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s.db = db
	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return s, nil
}

// dsn adds the driver options every connection needs. Transactions take
// the write lock up front: a deferred transaction that reads first cannot
// upgrade its lock while another connection writes, and SQLite fails it
// at once without consulting busy_timeout.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_txlock=immediate&_busy_timeout=5000"
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func (s *Store) applySchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func (s *Store) runMigrations() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		removed, err := migrateToV1(s.db)
		if err != nil {
			return err
		}
		if removed > 0 {
			s.logger.Warn("removed duplicate review records", "count", removed)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 keeps the most recently completed row of every review period
// and then adds the UNIQUE index. Databases written before the index may
// hold several rows per period.
func migrateToV1(db *sql.DB) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("migrate to v1: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		DELETE FROM reviews WHERE rowid NOT IN (
			SELECT rowid FROM (
				SELECT rowid, ROW_NUMBER() OVER (
					PARTITION BY owner, cadence, year, period_index
					ORDER BY completed_at DESC, rowid DESC
				) AS rn
				FROM reviews
			) WHERE rn = 1
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("migrate to v1: dedupe: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("migrate to v1: rows affected: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_reviews_period_unique
		ON reviews(owner, cadence, year, period_index)
	`); err != nil {
		return 0, fmt.Errorf("migrate to v1: unique index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("migrate to v1: commit: %w", err)
	}
	return removed, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
