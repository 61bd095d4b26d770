package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/WellnessPipe/internal/hooks"
	"github.com/BTreeMap/WellnessPipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the permissions for created database
// directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is the file-backed store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store. The DSN is a file path; the
// parent directory is created when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite store ready", "path", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

// SaveSession persists a JSON snapshot of the session.
func (s *SQLiteStore) SaveSession(ctx context.Context, sc *models.SessionContext) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to marshal session for %s: %w", sc.UserID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, snapshot, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user_id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = CURRENT_TIMESTAMP`,
		sc.UserID, string(data))
	if err != nil {
		return fmt.Errorf("failed to save session for %s: %w", sc.UserID, err)
	}
	return nil
}

// LoadSession returns the persisted session for a user, or nil.
func (s *SQLiteStore) LoadSession(ctx context.Context, userID string) (*models.SessionContext, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM sessions WHERE user_id = ?`, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session for %s: %w", userID, err)
	}
	var sc models.SessionContext
	if err := json.Unmarshal([]byte(data), &sc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session for %s: %w", userID, err)
	}
	return &sc, nil
}

// SaveRoutingRecord appends one routing trace record.
func (s *SQLiteStore) SaveRoutingRecord(ctx context.Context, rec hooks.RoutingRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO routing_records (user_id, utterance, category, tier, handler, degraded, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.Utterance, string(rec.Category), string(rec.Tier), nilIfEmpty(rec.Handler), rec.Degraded, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert routing record for %s: %w", rec.UserID, err)
	}
	return nil
}

// SaveReminder persists one reminder spec with set semantics.
func (s *SQLiteStore) SaveReminder(ctx context.Context, userID string, spec models.ReminderSpec) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO reminders (user_id, cadence, subject) VALUES (?, ?, ?)`,
		userID, string(spec.Cadence), spec.Subject)
	if err != nil {
		return fmt.Errorf("failed to insert reminder for %s: %w", userID, err)
	}
	return nil
}

// ListReminders returns all persisted reminders.
func (s *SQLiteStore) ListReminders(ctx context.Context) ([]ReminderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, cadence, subject FROM reminders`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()
	var out []ReminderRecord
	for rows.Next() {
		rec, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
