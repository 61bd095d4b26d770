package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/WellnessPipe/internal/models"
	"github.com/BTreeMap/WellnessPipe/internal/notify"
	"github.com/BTreeMap/WellnessPipe/internal/store"
)

// Recurrence intervals per cadence.
const (
	dailyInterval  = 24 * time.Hour
	weeklyInterval = 7 * 24 * time.Hour
)

// interval maps a cadence to its recurrence interval.
func interval(c models.Cadence) time.Duration {
	if c == models.CadenceWeekly {
		return weeklyInterval
	}
	return dailyInterval
}

// reminderKey identifies one active recurring reminder.
type reminderKey struct {
	userID string
	spec   models.ReminderSpec
}

// ReminderService turns reminder specs into recurring notifications. It
// persists specs through the store and restores them at boot, so reminders
// survive restarts. It implements the check-in scheduler's registrar.
type ReminderService struct {
	timer    Timer
	notifier notify.Notifier
	store    store.Store

	mu     sync.Mutex
	active map[reminderKey]string // timer id per reminder
}

// NewReminderService creates a reminder service. st may be nil; reminders
// then live for the process lifetime only.
func NewReminderService(timer Timer, notifier notify.Notifier, st store.Store) *ReminderService {
	return &ReminderService{
		timer:    timer,
		notifier: notifier,
		store:    st,
		active:   make(map[reminderKey]string),
	}
}

// Register persists the spec and starts its recurrence. Registering an
// already-active reminder is a no-op. userID doubles as the delivery
// address passed to the notifier; with the Twilio notifier it must be an
// E.164 phone number.
func (s *ReminderService) Register(ctx context.Context, userID string, spec models.ReminderSpec) error {
	if !models.IsValidCadence(spec.Cadence) {
		return fmt.Errorf("invalid cadence: %s", spec.Cadence)
	}
	if s.store != nil {
		if err := s.store.SaveReminder(ctx, userID, spec); err != nil {
			return fmt.Errorf("failed to persist reminder: %w", err)
		}
	}
	s.schedule(userID, spec)
	return nil
}

// Recover restores persisted reminders at boot.
func (s *ReminderService) Recover(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	recs, err := s.store.ListReminders(ctx)
	if err != nil {
		return fmt.Errorf("failed to list reminders for recovery: %w", err)
	}
	for _, rec := range recs {
		s.schedule(rec.UserID, rec.Spec)
	}
	slog.Info("reminders recovered", "count", len(recs))
	return nil
}

// schedule starts the recurrence for one reminder if it is not already
// active.
func (s *ReminderService) schedule(userID string, spec models.ReminderSpec) {
	key := reminderKey{userID: userID, spec: spec}
	s.mu.Lock()
	if _, exists := s.active[key]; exists {
		s.mu.Unlock()
		return
	}
	s.active[key] = ""
	s.mu.Unlock()

	s.arm(key)
	slog.Info("reminder recurrence started", "user_id", userID, "cadence", spec.Cadence, "subject", spec.Subject)
}

// arm schedules the next firing of one reminder.
func (s *ReminderService) arm(key reminderKey) {
	id, err := s.timer.ScheduleAfter(interval(key.spec.Cadence), func() {
		s.fire(key)
	})
	if err != nil {
		slog.Error("reminder scheduling failed", "user_id", key.userID, "subject", key.spec.Subject, "error", err)
		return
	}
	s.mu.Lock()
	if _, exists := s.active[key]; exists {
		s.active[key] = id
	}
	s.mu.Unlock()
}

// fire delivers one reminder and re-arms the recurrence. Delivery failures
// are logged; the recurrence continues.
func (s *ReminderService) fire(key reminderKey) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body := fmt.Sprintf("Time for your %s check-in! Reply here to log progress or adjust your plan.", key.spec.Subject)
	if err := s.notifier.Send(ctx, key.userID, body); err != nil {
		slog.Warn("reminder delivery failed", "user_id", key.userID, "subject", key.spec.Subject, "error", err)
	}

	s.mu.Lock()
	_, stillActive := s.active[key]
	s.mu.Unlock()
	if stillActive {
		s.arm(key)
	}
}

// Cancel stops the recurrence for one reminder.
func (s *ReminderService) Cancel(userID string, spec models.ReminderSpec) {
	key := reminderKey{userID: userID, spec: spec}
	s.mu.Lock()
	id, exists := s.active[key]
	delete(s.active, key)
	s.mu.Unlock()
	if exists && id != "" {
		_ = s.timer.Cancel(id)
	}
}

// Stop cancels all recurrences.
func (s *ReminderService) Stop() {
	s.mu.Lock()
	s.active = make(map[reminderKey]string)
	s.mu.Unlock()
	s.timer.Stop()
}
