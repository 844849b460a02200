package store

import (
	"path/filepath"
	"testing"
)

// OpenTest opens a fresh sqlite database in a temporary directory and closes
// it when the test ends.
func OpenTest(t testing.TB) *Store {
	t.Helper()
	s, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
