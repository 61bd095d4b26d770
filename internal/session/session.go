// Package session owns the per-user session contexts.
//
// The manager hands out exclusive access to one SessionContext at a time
// per user, which gives the routing core its strict one-utterance-at-a-time
// ordering. Independent sessions proceed concurrently. Snapshots are
// persisted through the store after each access; a persistence failure is
// logged and never affects the turn.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/BTreeMap/WellnessPipe/internal/models"
	"github.com/BTreeMap/WellnessPipe/internal/store"
)

// entry pairs a session with its serialization lock.
type entry struct {
	mu sync.Mutex
	sc *models.SessionContext
}

// Manager owns one SessionContext per user for the process lifetime.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*entry
	store      store.Store
	historyCap int
}

// NewManager creates a session manager. st may be nil for purely in-memory
// sessions.
func NewManager(st store.Store, historyCap int) *Manager {
	return &Manager{
		sessions:   make(map[string]*entry),
		store:      st,
		historyCap: historyCap,
	}
}

// lookup returns the entry for a user, creating it on first touch. A
// persisted snapshot is restored when present.
func (m *Manager) lookup(ctx context.Context, userID string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[userID]; ok {
		return e
	}

	sc := models.NewSessionContext(userID, m.historyCap)
	if m.store != nil {
		restored, err := m.store.LoadSession(ctx, userID)
		if err != nil {
			slog.Warn("session restore failed, starting fresh", "user_id", userID, "error", err)
		} else if restored != nil {
			restored.HistoryCap = m.historyCap
			if restored.Flags == nil {
				restored.Flags = make(map[string]bool)
			}
			sc = restored
			slog.Debug("session restored", "user_id", userID, "history", len(sc.ChatHistory))
		}
	}
	e := &entry{sc: sc}
	m.sessions[userID] = e
	return e
}

// With runs fn with exclusive access to the user's session, then persists a
// snapshot. Calls for the same user serialize; calls for different users run
// concurrently.
func (m *Manager) With(ctx context.Context, userID string, fn func(sc *models.SessionContext)) {
	e := m.lookup(ctx, userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	fn(e.sc)

	if m.store != nil {
		if err := m.store.SaveSession(ctx, e.sc); err != nil {
			slog.Warn("session snapshot save failed", "user_id", userID, "error", err)
		}
	}
}

// Peek returns a deep-enough copy of the user's current session for
// read-only presentation, or nil when the user has no session yet.
func (m *Manager) Peek(ctx context.Context, userID string) *models.SessionContext {
	m.mu.Lock()
	e, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		if m.store == nil {
			return nil
		}
		restored, err := m.store.LoadSession(ctx, userID)
		if err != nil {
			slog.Warn("session peek load failed", "user_id", userID, "error", err)
			return nil
		}
		return restored
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	cp := *e.sc
	cp.ProgressLogs = append([]models.ProgressEntry(nil), e.sc.ProgressLogs...)
	cp.Schedule = append([]models.ReminderSpec(nil), e.sc.Schedule...)
	cp.ChatHistory = append([]models.ChatMessage(nil), e.sc.ChatHistory...)
	cp.InjuryNotes = append([]string(nil), e.sc.InjuryNotes...)
	flags := make(map[string]bool, len(e.sc.Flags))
	for k, v := range e.sc.Flags {
		flags[k] = v
	}
	cp.Flags = flags
	return &cp
}
