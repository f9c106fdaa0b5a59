package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"reviews", "profiles"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

// Pragma tests

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		if err := s.verifyPragma(tt.name, tt.expected); err != nil {
			t.Error(err)
		}
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"reviews.db", "reviews.db?_txlock=immediate&_busy_timeout=5000"},
		{":memory:", ":memory:?_txlock=immediate&_busy_timeout=5000"},
		{"file:reviews.db?mode=rwc", "file:reviews.db?mode=rwc&_txlock=immediate&_busy_timeout=5000"},
	}
	for _, tt := range tests {
		if got := dsn(tt.path); got != tt.want {
			t.Errorf("dsn(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

// Schema tests

func TestSchema_ReviewsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "reviews")
	expected := []string{
		"id", "owner", "cadence", "year", "period_index",
		"responses", "digest", "created_at", "completed_at",
	}
	for _, col := range expected {
		if !contains(columns, col) {
			t.Errorf("reviews table missing column %q", col)
		}
	}
}

func TestSchema_ProfilesTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "profiles")
	for _, col := range []string{"owner", "north_stars", "updated_at"} {
		if !contains(columns, col) {
			t.Errorf("profiles table missing column %q", col)
		}
	}
}

func TestConstraint_ReviewsUniquePeriod(t *testing.T) {
	s := createTestStore(t)

	insert := `INSERT INTO reviews
		(id, owner, cadence, year, period_index, responses, digest, created_at, completed_at)
		VALUES (?, 'alice', 'weekly', 2025, 3, '{}', 'x', 1, 1)`
	if _, err := s.db.Exec(insert, "r1"); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if _, err := s.db.Exec(insert, "r2"); err == nil {
		t.Error("expected UNIQUE violation for second row of the same period")
	}
}

func TestConstraint_ReviewsCadenceCheck(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO reviews
		(id, owner, cadence, year, period_index, responses, digest, created_at, completed_at)
		VALUES ('r1', 'alice', 'daily', 2025, 3, '{}', 'x', 1, 1)`)
	if err == nil {
		t.Error("expected CHECK violation for unknown cadence")
	}
}

// Migration tests

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMigration_V1UniqueIndexExists(t *testing.T) {
	s := createTestStore(t)

	indexes := getTableIndexes(t, s.db, "reviews")
	if !contains(indexes, "idx_reviews_period_unique") {
		t.Errorf("reviews table missing unique period index, indexes: %v", indexes)
	}
}

func TestMigration_UpgradeFromV0RemovesDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Pre-migration database: schema without the unique index.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	rows := []struct {
		id        string
		owner     string
		index     int
		completed int64
	}{
		{"old", "alice", 3, 100},
		{"newest", "alice", 3, 300},
		{"middle", "alice", 3, 200},
		{"other-week", "alice", 4, 50},
		{"bob", "bob", 3, 10},
	}
	for _, r := range rows {
		if _, err := db.Exec(`INSERT INTO reviews
			(id, owner, cadence, year, period_index, responses, digest, created_at, completed_at)
			VALUES (?, ?, 'weekly', 2025, ?, '{}', 'x', ?, ?)`,
			r.id, r.owner, r.index, r.completed, r.completed); err != nil {
			t.Fatalf("insert %s: %v", r.id, err)
		}
	}
	if _, err := db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	var ids []string
	got, err := s.db.Query("SELECT id FROM reviews ORDER BY id")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer got.Close()
	for got.Next() {
		var id string
		if err := got.Scan(&id); err != nil {
			t.Fatalf("scan: %v", err)
		}
		ids = append(ids, id)
	}

	want := []string{"bob", "newest", "other-week"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

// Helper functions

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
