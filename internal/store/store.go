// Package store provides the persistence sinks for WellnessPipe.
//
// It persists session snapshots, routing records, and reminder specs behind
// a single Store interface with in-memory, SQLite, and PostgreSQL backends.
// Persistence is a sink: a store failure never changes a routing outcome.
package store

import (
	"context"
	"strings"

	"github.com/BTreeMap/WellnessPipe/internal/hooks"
	"github.com/BTreeMap/WellnessPipe/internal/models"
)

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option configures store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// ReminderRecord is one persisted reminder, keyed by user and spec.
type ReminderRecord struct {
	UserID string              `json:"user_id"`
	Spec   models.ReminderSpec `json:"spec"`
}

// Store is the persistence interface shared by all backends.
type Store interface {
	// SaveSession persists a JSON snapshot of the session, replacing any
	// previous snapshot for the same user.
	SaveSession(ctx context.Context, sc *models.SessionContext) error

	// LoadSession returns the persisted session for a user, or nil when
	// none exists.
	LoadSession(ctx context.Context, userID string) (*models.SessionContext, error)

	// SaveRoutingRecord appends one routing trace record.
	SaveRoutingRecord(ctx context.Context, rec hooks.RoutingRecord) error

	// SaveReminder persists one reminder spec; saving an existing
	// (user, cadence, subject) triple is a no-op.
	SaveReminder(ctx context.Context, userID string, spec models.ReminderSpec) error

	// ListReminders returns all persisted reminders, used by the scheduler
	// for recovery at boot.
	ListReminders(ctx context.Context) ([]ReminderRecord, error)

	// Close releases the backend resources.
	Close() error
}

// New selects a backend from the DSN: empty selects the in-memory store,
// postgres URLs the PostgreSQL store, anything else is an SQLite file path.
func New(dsn string) (Store, error) {
	switch {
	case dsn == "":
		return NewInMemoryStore(), nil
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresStore(WithDSN(dsn))
	default:
		return NewSQLiteStore(WithDSN(dsn))
	}
}
