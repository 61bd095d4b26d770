package store

import (
	"database/sql"
	"fmt"

	"github.com/BTreeMap/WellnessPipe/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise s. Used for nullable
// database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanReminder scans one ReminderRecord from sql.Rows.
func scanReminder(rows *sql.Rows) (ReminderRecord, error) {
	var rec ReminderRecord
	var cadence string
	if err := rows.Scan(&rec.UserID, &cadence, &rec.Spec.Subject); err != nil {
		return rec, fmt.Errorf("scan reminder failed: %w", err)
	}
	rec.Spec.Cadence = models.Cadence(cadence)
	return rec, nil
}
