package migrate

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRun_AppliesOnce(t *testing.T) {
	db := openMemory(t)

	n, err := Run(db)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n == 0 {
		t.Fatalf("Run() applied = 0, want at least one migration")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM calibration_events").Scan(&count); err != nil {
		t.Fatalf("calibration_events missing: %v", err)
	}

	n, err = Run(db)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second Run() applied = %d, want 0", n)
	}
}

func TestParseFileName(t *testing.T) {
	tests := []struct {
		in      string
		version string
		name    string
		ok      bool
	}{
		{in: "0001_calibration_events.sql", version: "0001", name: "calibration_events", ok: true},
		{in: "12_short.sql"},
		{in: "0002_missing_ext"},
		{in: "README.md"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, n, ok := parseFileName(tt.in)
			if ok != tt.ok || v != tt.version || n != tt.name {
				t.Errorf("parseFileName(%q) = (%q, %q, %v), want (%q, %q, %v)", tt.in, v, n, ok, tt.version, tt.name, tt.ok)
			}
		})
	}
}
