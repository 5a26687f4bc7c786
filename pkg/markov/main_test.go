package markov

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates a new SQLite database file and a SQLStore for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *SQLStore) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewSQLStore(db)
	if err != nil {
		t.Fatalf("NewSQLStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// ngramsOf slides a window of length n over symbols.
func ngramsOf(symbols []string, n int) []NGram {
	var out []NGram
	for i := 0; i+n <= len(symbols); i++ {
		out = append(out, NGram(symbols[i:i+n]))
	}
	return out
}

// chars splits a string into single-character symbols.
func chars(s string) []string {
	return strings.Split(s, "")
}

// setupFittedModel returns a model of the given order fitted on text split into characters.
func setupFittedModel(t *testing.T, order int, text string) *Model {
	t.Helper()
	m := New(WithOrder(order))
	if err := m.Fit(ngramsOf(chars(text), order)); err != nil {
		t.Fatalf("setup: Fit() failed: %v", err)
	}
	return m
}
