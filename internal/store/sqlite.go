package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/gtdxp-os/internal/model"
)

// DefaultListLimit caps ListNotifications when no limit is given.
const DefaultListLimit = 50

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// DefaultPath returns the database location inside dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, "gtdxp.db")
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the highest applied migration.
func (s *SQLiteStore) SchemaVersion() (int, error) {
	var v int
	if err := s.db.Get(&v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		currentVersion, err = s.SchemaVersion()
		if err != nil {
			return err
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// RecordNotification inserts a toast into the history. Recording the same
// id twice keeps the first row.
func (s *SQLiteStore) RecordNotification(
	ctx context.Context,
	n model.NotificationRecord,
) error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("notification title must not be empty")
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Kind == "" {
		n.Kind = "default"
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notifications (
			id, title, description, kind, duration_ms, created_at, dismissed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Description, n.Kind, n.DurationMS,
		n.CreatedAt.UTC(), utcOrNil(n.DismissedAt),
	)
	if err != nil {
		return fmt.Errorf("recording notification %s: %w", n.ID, err)
	}
	return nil
}

// MarkNotificationDismissed stamps when a toast left the queue. Rows that
// are already dismissed keep their original timestamp.
func (s *SQLiteStore) MarkNotificationDismissed(
	ctx context.Context,
	id string,
	at time.Time,
) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET dismissed_at = COALESCE(dismissed_at, ?) WHERE id = ?",
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("dismissing notification %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListNotifications returns the most recent toasts first.
func (s *SQLiteStore) ListNotifications(
	ctx context.Context,
	limit int,
) ([]model.NotificationRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var records []model.NotificationRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT id, title, description, kind, duration_ms, created_at, dismissed_at
		FROM notifications
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	return records, nil
}

// PruneNotifications deletes history created before the cutoff and
// reports how many rows went.
func (s *SQLiteStore) PruneNotifications(
	ctx context.Context,
	before time.Time,
) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE created_at < ?", before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning notifications: %w", err)
	}
	return result.RowsAffected()
}

// GetPreference returns the stored value for key, or ErrNotFound.
func (s *SQLiteStore) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM preferences WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("preference %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("reading preference %q: %w", key, err)
	}
	return value, nil
}

// SetPreference inserts or replaces the value for key.
func (s *SQLiteStore) SetPreference(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("preference key must not be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving preference %q: %w", key, err)
	}
	return nil
}

// utcOrNil converts an optional timestamp for SQLite storage.
func utcOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

var _ Store = (*SQLiteStore)(nil)
