package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

// TestOpen_MissingFileIsEmpty tests that a missing catalog file yields an
// empty, usable catalog.
func TestOpen_MissingFileIsEmpty(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "databases.json"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, ok := c.DatabaseID("Contact"); ok {
		t.Error("empty catalog returned a mapping")
	}
}

// TestSetDatabaseID_PersistsAcrossReopen tests the save/load round trip.
func TestSetDatabaseID_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "databases.json")

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := c.SetDatabaseID("Contact", "db-123"); err != nil {
		t.Fatalf("SetDatabaseID() failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	id, ok := reopened.DatabaseID("Contact")
	if !ok || id != "db-123" {
		t.Errorf("DatabaseID() = (%q, %v), want (db-123, true)", id, ok)
	}
}

// TestSetDatabaseID_CreatesParentDirectory tests nested catalog paths.
func TestSetDatabaseID_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "databases.json")

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := c.SetDatabaseID("Account", "db-456"); err != nil {
		t.Fatalf("SetDatabaseID() failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("catalog file was not written: %v", err)
	}
}

// TestOpen_InvalidJSON tests that a corrupt catalog is an error rather
// than silently starting empty (which would re-create every database).
func TestOpen_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "databases.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Error("Open() succeeded on corrupt catalog, want error")
	}
}
