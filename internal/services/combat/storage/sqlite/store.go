package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sqlitemigrate "github.com/louisbranch/shadowtrack/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
	"github.com/louisbranch/shadowtrack/internal/services/combat/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed docstore.Store.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time

	mu        sync.RWMutex
	observers []docstore.Observer
}

// Open opens a SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB, now: time.Now}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) runMigrations() error {
	return sqlitemigrate.ApplyMigrations(s.sqlDB, migrations.FS, ".")
}

// Watch registers an observer for non-silent commits.
func (s *Store) Watch(observer docstore.Observer) {
	if observer == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, observer)
	s.mu.Unlock()
}

// Load implements docstore.Store.
func (s *Store) Load(ctx context.Context, ref docstore.Ref) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if !ref.Valid() {
		return nil, docstore.ErrRefRequired
	}
	var body string
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE kind = ? AND id = ?",
		string(ref.Kind), ref.ID,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", ref, docstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", ref, err)
	}
	return []byte(body), nil
}

// Commit implements docstore.Store. Every update is patched against the
// document as read inside the transaction.
func (s *Store) Commit(ctx context.Context, batch docstore.Batch) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if batch.Empty() {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	updatedAt := s.now().UTC().UnixMilli()
	for _, u := range batch.Updates {
		if !u.Ref.Valid() {
			return docstore.ErrRefRequired
		}
		if u.Empty() {
			continue
		}
		var current []byte
		var body string
		scanErr := tx.QueryRowContext(ctx,
			"SELECT body FROM documents WHERE kind = ? AND id = ?",
			string(u.Ref.Kind), u.Ref.ID,
		).Scan(&body)
		switch {
		case scanErr == nil:
			current = []byte(body)
		case errors.Is(scanErr, sql.ErrNoRows):
		default:
			return fmt.Errorf("read %s: %w", u.Ref, scanErr)
		}

		next, patchErr := docstore.Patch(current, u)
		if patchErr != nil {
			return patchErr
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO documents (kind, id, body, version, updated_at)
VALUES (?, ?, ?, 1, ?)
ON CONFLICT (kind, id) DO UPDATE SET
    body = excluded.body,
    version = documents.version + 1,
    updated_at = excluded.updated_at`,
			string(u.Ref.Kind), u.Ref.ID, string(next), updatedAt,
		); err != nil {
			return fmt.Errorf("write %s: %w", u.Ref, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	if !batch.Silent {
		s.mu.RLock()
		observers := append([]docstore.Observer(nil), s.observers...)
		s.mu.RUnlock()
		for _, observe := range observers {
			observe(batch)
		}
	}
	return nil
}

// Put stores v as the document at ref without notifying observers.
func (s *Store) Put(ctx context.Context, ref docstore.Ref, v any) error {
	u, err := docstore.ReplaceWith(ref, v)
	if err != nil {
		return err
	}
	return s.Commit(ctx, docstore.Batch{Updates: []docstore.Update{u}, Silent: true})
}

// Version returns how many times the document at ref has been written.
func (s *Store) Version(ctx context.Context, ref docstore.Ref) (int, error) {
	var version int
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT version FROM documents WHERE kind = ? AND id = ?",
		string(ref.Kind), ref.ID,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("version %s: %w", ref, docstore.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("version %s: %w", ref, err)
	}
	return version, nil
}

var _ docstore.Store = (*Store)(nil)
