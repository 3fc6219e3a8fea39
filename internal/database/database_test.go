package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestMigrateUpAndDown(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "nested", "serialgrab.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	v, err := db.Version()
	if err != nil || v != 1 {
		t.Fatalf("Version() = %d, %v; want 1", v, err)
	}

	var name string
	if err := db.Conn().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'monitored_seasons'`).Scan(&name); err != nil {
		t.Fatalf("monitored_seasons table missing: %v", err)
	}

	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if v, _ := db.Version(); v != 0 {
		t.Errorf("Version() after down = %d, want 0", v)
	}
}
