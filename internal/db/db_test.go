package db

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

// newTestDB opens a migrated database in a per-test temp dir.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "dyno-test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// TestNewDBAppliesMigrations verifies that opening a fresh database creates
// the settings tables.
func TestNewDBAppliesMigrations(t *testing.T) {
	database := newTestDB(t)

	for _, table := range []string{"dyno_serial_config", "tuning_profile"} {
		var count int
		err := database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to check for table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s not created by migrations", table)
		}
	}
}

// TestMigrateDownAndBackUp exercises the down migration and re-applying it.
func TestMigrateDownAndBackUp(t *testing.T) {
	database := newTestDB(t)

	if err := database.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}

	var count int
	err := database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tuning_profile'`).Scan(&count)
	if err != nil {
		t.Fatalf("failed to check table: %v", err)
	}
	if count != 0 {
		t.Error("tuning_profile still present after down migration")
	}

	if err := database.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	version, dirty, err := database.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("migration state is dirty")
	}
	if version == 0 {
		t.Error("expected a non-zero migration version")
	}
}

// TestGetMigrationStatus checks the status summary after migrating.
func TestGetMigrationStatus(t *testing.T) {
	database := newTestDB(t)

	status, err := database.GetMigrationStatus()
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if status["dirty"] != false {
		t.Errorf("dirty = %v, want false", status["dirty"])
	}
	if status["migrations_table_exists"] != true {
		t.Errorf("migrations_table_exists = %v, want true", status["migrations_table_exists"])
	}
}

// TestAttachAdminRoutes verifies the debug index mounts without panicking
// and reports the registered handlers.
func TestAttachAdminRoutes(t *testing.T) {
	database := newTestDB(t)

	mux := http.NewServeMux()
	database.AttachAdminRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/debug/", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /debug/ status = %d, want %d", rec.Code, http.StatusOK)
	}
}
