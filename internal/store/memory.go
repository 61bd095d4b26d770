package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/BTreeMap/WellnessPipe/internal/hooks"
	"github.com/BTreeMap/WellnessPipe/internal/models"
)

// InMemoryStore keeps everything in process memory. It is the default when
// no DSN is configured and the backend used by tests.
type InMemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string][]byte
	records   []hooks.RoutingRecord
	reminders map[string][]models.ReminderSpec
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:  make(map[string][]byte),
		reminders: make(map[string][]models.ReminderSpec),
	}
}

// SaveSession persists a JSON snapshot of the session.
func (s *InMemoryStore) SaveSession(ctx context.Context, sc *models.SessionContext) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sc.UserID] = data
	return nil
}

// LoadSession returns the persisted session for a user, or nil.
func (s *InMemoryStore) LoadSession(ctx context.Context, userID string) (*models.SessionContext, error) {
	s.mu.RLock()
	data, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var sc models.SessionContext
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// SaveRoutingRecord appends one routing trace record.
func (s *InMemoryStore) SaveRoutingRecord(ctx context.Context, rec hooks.RoutingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// GetRoutingRecords returns a copy of the recorded routing traces.
func (s *InMemoryStore) GetRoutingRecords() []hooks.RoutingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]hooks.RoutingRecord(nil), s.records...)
}

// SaveReminder persists one reminder spec with set semantics.
func (s *InMemoryStore) SaveReminder(ctx context.Context, userID string, spec models.ReminderSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reminders[userID] {
		if existing == spec {
			return nil
		}
	}
	s.reminders[userID] = append(s.reminders[userID], spec)
	return nil
}

// ListReminders returns all persisted reminders.
func (s *InMemoryStore) ListReminders(ctx context.Context) ([]ReminderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ReminderRecord
	for userID, specs := range s.reminders {
		for _, spec := range specs {
			out = append(out, ReminderRecord{UserID: userID, Spec: spec})
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
