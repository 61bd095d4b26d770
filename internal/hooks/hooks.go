// Package hooks implements the lifecycle observer points of the routing
// pipeline.
//
// The set of points is fixed and closed: BeforeClassification, AfterHandler,
// BeforeOutput, AfterOutput. Observers receive a read-only snapshot of the
// turn, may only side-effect (logging, persistence, notification), and are
// invoked under recover, so a failing observer never affects routing.
package hooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/BTreeMap/WellnessPipe/internal/models"
)

// Point is one lifecycle observer point.
type Point string

const (
	BeforeClassification Point = "before_classification"
	AfterHandler         Point = "after_handler"
	BeforeOutput         Point = "before_output"
	AfterOutput          Point = "after_output"
)

// Snapshot is the read-only view of a turn handed to observers. All fields
// are copies; mutating a snapshot never touches the session.
type Snapshot struct {
	UserID      string
	Utterance   string
	Category    models.Category
	Tier        models.ConfidenceTier
	Handler     string
	Specialist  string
	ReplyText   string
	Degraded    bool
	GoalSet     bool
	InjuryNotes []string
	Timestamp   time.Time
}

// NewSnapshot builds a snapshot from the turn state, copying every slice.
func NewSnapshot(sc *models.SessionContext, utterance string) Snapshot {
	s := Snapshot{
		UserID:    sc.UserID,
		Utterance: utterance,
		GoalSet:   sc.Goal != nil,
		Timestamp: time.Now(),
	}
	if len(sc.InjuryNotes) > 0 {
		s.InjuryNotes = append([]string(nil), sc.InjuryNotes...)
	}
	return s
}

// Observer is called at one lifecycle point with a snapshot of the turn.
type Observer func(ctx context.Context, point Point, snap Snapshot)

// Registry holds the observers per point. It is configured at wiring time
// and not mutated afterwards, so invocation needs no locking.
type Registry struct {
	observers map[Point][]Observer
}

// NewRegistry creates an empty observer registry.
func NewRegistry() *Registry {
	return &Registry{observers: make(map[Point][]Observer)}
}

// Register adds an observer at one point.
func (r *Registry) Register(point Point, obs Observer) {
	r.observers[point] = append(r.observers[point], obs)
}

// Fire invokes every observer registered at the point. Panics are recovered
// and logged; observers cannot alter routing.
func (r *Registry) Fire(ctx context.Context, point Point, snap Snapshot) {
	for _, obs := range r.observers[point] {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("hook observer panicked", "point", point, "panic", rec)
				}
			}()
			obs(ctx, point, snap)
		}()
	}
}

// RoutingRecord is the persisted trace of one routed turn.
type RoutingRecord struct {
	UserID    string                `json:"user_id"`
	Utterance string                `json:"utterance"`
	Category  models.Category       `json:"category"`
	Tier      models.ConfidenceTier `json:"tier"`
	Handler   string                `json:"handler,omitempty"`
	Degraded  bool                  `json:"degraded"`
	Timestamp time.Time             `json:"timestamp"`
}

// RecordWriter persists routing records. The store package implements it.
type RecordWriter interface {
	SaveRoutingRecord(ctx context.Context, rec RoutingRecord) error
}

// NewStoreSink returns an AfterOutput observer that persists the routing
// record fire-and-forget: a write failure is logged and dropped.
func NewStoreSink(w RecordWriter) Observer {
	return func(ctx context.Context, point Point, snap Snapshot) {
		rec := RoutingRecord{
			UserID:    snap.UserID,
			Utterance: snap.Utterance,
			Category:  snap.Category,
			Tier:      snap.Tier,
			Handler:   snap.Handler,
			Degraded:  snap.Degraded,
			Timestamp: snap.Timestamp,
		}
		if err := w.SaveRoutingRecord(ctx, rec); err != nil {
			slog.Warn("routing record write failed", "user_id", snap.UserID, "error", err)
		}
	}
}
