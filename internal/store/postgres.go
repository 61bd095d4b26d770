package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "embed"

	"github.com/BTreeMap/WellnessPipe/internal/hooks"
	"github.com/BTreeMap/WellnessPipe/internal/models"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is the PostgreSQL-backed store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store from a postgres:// DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL store ready")
	return &PostgresStore{db: db}, nil
}

// SaveSession persists a JSON snapshot of the session.
func (s *PostgresStore) SaveSession(ctx context.Context, sc *models.SessionContext) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to marshal session for %s: %w", sc.UserID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, snapshot, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = NOW()`,
		sc.UserID, string(data))
	if err != nil {
		return fmt.Errorf("failed to save session for %s: %w", sc.UserID, err)
	}
	return nil
}

// LoadSession returns the persisted session for a user, or nil.
func (s *PostgresStore) LoadSession(ctx context.Context, userID string) (*models.SessionContext, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM sessions WHERE user_id = $1`, userID).Scan(&data)
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
func (s *PostgresStore) SaveRoutingRecord(ctx context.Context, rec hooks.RoutingRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO routing_records (user_id, utterance, category, tier, handler, degraded, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.UserID, rec.Utterance, string(rec.Category), string(rec.Tier), nilIfEmpty(rec.Handler), rec.Degraded, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert routing record for %s: %w", rec.UserID, err)
	}
	return nil
}

// SaveReminder persists one reminder spec with set semantics.
func (s *PostgresStore) SaveReminder(ctx context.Context, userID string, spec models.ReminderSpec) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (user_id, cadence, subject) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		userID, string(spec.Cadence), spec.Subject)
	if err != nil {
		return fmt.Errorf("failed to insert reminder for %s: %w", userID, err)
	}
	return nil
}

// ListReminders returns all persisted reminders.
func (s *PostgresStore) ListReminders(ctx context.Context) ([]ReminderRecord, error) {
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
