// Package migrate applies the embedded SQLite schema. Files are named
// NNNN_name.sql and run once each, in version order.
package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"sort"
)

//go:embed sql/*.sql
var sqlFS embed.FS

const (
	migrationsDir = "sql"
	versionsTable = "schema_migrations"
)

var fileNameRe = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

type step struct {
	version string
	name    string
	body    string
}

// Run creates the version table when needed and applies every pending step.
// It returns the number of steps applied.
func Run(db *sql.DB) (int, error) {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + versionsTable + ` (
			version    TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`); err != nil {
		return 0, fmt.Errorf("ensure %s: %w", versionsTable, err)
	}

	done, err := appliedVersions(db)
	if err != nil {
		return 0, fmt.Errorf("list applied migrations: %w", err)
	}

	pending, err := pendingSteps(done)
	if err != nil {
		return 0, err
	}

	for _, s := range pending {
		if err := apply(db, s); err != nil {
			return 0, fmt.Errorf("apply %s_%s.sql: %w", s.version, s.name, err)
		}
		slog.Info("migration applied", "version", s.version, "name", s.name)
	}
	return len(pending), nil
}

func pendingSteps(done map[string]bool) ([]step, error) {
	entries, err := fs.ReadDir(sqlFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var out []step
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, name, ok := parseFileName(e.Name())
		if !ok || done[version] {
			continue
		}
		body, err := fs.ReadFile(sqlFS, migrationsDir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		out = append(out, step{version: version, name: name, body: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT version FROM " + versionsTable)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func parseFileName(name string) (version, rest string, ok bool) {
	m := fileNameRe.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func apply(db *sql.DB, s step) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(s.body); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec("INSERT INTO "+versionsTable+" (version, name) VALUES (?, ?)", s.version, s.name); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
