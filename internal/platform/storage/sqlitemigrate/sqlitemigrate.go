// Package sqlitemigrate applies embedded, forward-only SQL migrations.
package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	migrationTable = "schema_migrations"
	upMarker       = "-- +migrate Up"
	downMarker     = "-- +migrate Down"
)

// Migration is one named up-script read from a migration tree.
type Migration struct {
	// Name is the key recorded in schema_migrations, relative to the fs root.
	Name string
	Up   string
}

// Load reads every *.sql file directly under root in lexical order.
// Files whose up section is blank are skipped.
func Load(migrationFS fs.FS, root string) ([]Migration, error) {
	if migrationFS == nil {
		return nil, errors.New("migration fs is required")
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}
	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		key := path.Join(root, name)
		content, err := fs.ReadFile(migrationFS, key)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		up := ExtractUpMigration(string(content))
		if strings.TrimSpace(up) == "" {
			continue
		}
		migrations = append(migrations, Migration{Name: key, Up: up})
	}
	return migrations, nil
}

// ApplyMigrations loads migrations from migrationRoot and applies those not yet recorded.
func ApplyMigrations(sqlDB *sql.DB, migrationFS fs.FS, migrationRoot string) error {
	migrations, err := Load(migrationFS, migrationRoot)
	if err != nil {
		return err
	}
	return Apply(context.Background(), sqlDB, migrations)
}

// Apply runs each migration in its own transaction and records it on success.
// A migration that fails leaves no row behind so a fixed version can be retried.
func Apply(ctx context.Context, sqlDB *sql.DB, migrations []Migration) error {
	if sqlDB == nil {
		return errors.New("sql db is required")
	}
	if _, err := sqlDB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, m := range migrations {
		applied, err := isApplied(ctx, sqlDB, m.Name)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", m.Name, err)
		}
		if applied {
			continue
		}
		if err := applyOne(ctx, sqlDB, m); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(ctx context.Context, sqlDB *sql.DB, m Migration) (err error) {
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.Name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, m.Up); err != nil && !IsAlreadyExistsError(err) {
		return fmt.Errorf("exec migration %s: %w", m.Name, err)
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
		m.Name, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("record migration %s: %w", m.Name, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Name, err)
	}
	return nil
}

// ExtractUpMigration returns the SQL in the -- +migrate Up section.
// Content without markers is returned whole.
func ExtractUpMigration(content string) string {
	upIdx := strings.Index(content, upMarker)
	if upIdx == -1 {
		return content
	}
	body := content[upIdx+len(upMarker):]
	if downIdx := strings.Index(body, downMarker); downIdx != -1 {
		return body[:downIdx]
	}
	return body
}

// IsAlreadyExistsError reports whether err indicates idempotent DDL success.
func IsAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "already exists") || strings.Contains(value, "duplicate column name")
}

func isApplied(ctx context.Context, sqlDB *sql.DB, name string) (bool, error) {
	var found int
	err := sqlDB.QueryRowContext(ctx, "SELECT 1 FROM "+migrationTable+" WHERE name = ?", name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
