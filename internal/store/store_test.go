package store

import (
	"context"
	"testing"
	"time"

	"github.com/BTreeMap/WellnessPipe/internal/hooks"
	"github.com/BTreeMap/WellnessPipe/internal/models"
)

func TestSessionRoundTrip(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	sc := models.NewSessionContext("u1", 0)
	sc.SetGoal(models.Goal{Type: models.GoalLoseWeight, TargetDelta: -5, Unit: models.UnitKilograms})
	sc.AppendProgress("workout", "completed leg day")
	sc.AddInjuryNote("knee")

	if err := s.SaveSession(ctx, sc); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := s.LoadSession(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a session")
	}
	if loaded.Goal == nil || loaded.Goal.TargetDelta != -5 {
		t.Errorf("goal did not round-trip: %+v", loaded.Goal)
	}
	if len(loaded.ProgressLogs) != 1 {
		t.Errorf("progress logs did not round-trip: %+v", loaded.ProgressLogs)
	}
	if len(loaded.InjuryNotes) != 1 || loaded.InjuryNotes[0] != "knee" {
		t.Errorf("injury notes did not round-trip: %+v", loaded.InjuryNotes)
	}
}

func TestLoadMissingSessionReturnsNil(t *testing.T) {
	s := NewInMemoryStore()
	loaded, err := s.LoadSession(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for a missing session, got %+v", loaded)
	}
}

func TestSaveSessionReplacesSnapshot(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	sc := models.NewSessionContext("u1", 0)
	if err := s.SaveSession(ctx, sc); err != nil {
		t.Fatalf("save: %v", err)
	}
	sc.SetGoal(models.Goal{Type: models.GoalBuildMuscle})
	if err := s.SaveSession(ctx, sc); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.LoadSession(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Goal == nil || loaded.Goal.Type != models.GoalBuildMuscle {
		t.Errorf("snapshot was not replaced: %+v", loaded.Goal)
	}
}

func TestRoutingRecords(t *testing.T) {
	s := NewInMemoryStore()
	rec := hooks.RoutingRecord{
		UserID:    "u1",
		Utterance: "I want a meal plan",
		Category:  models.CategoryMeal,
		Tier:      models.TierExact,
		Handler:   models.HandlerMealPlanner,
		Timestamp: time.Now(),
	}
	if err := s.SaveRoutingRecord(context.Background(), rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	records := s.GetRoutingRecords()
	if len(records) != 1 || records[0].Category != models.CategoryMeal {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestReminderSetSemantics(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	spec := models.ReminderSpec{Cadence: models.CadenceDaily, Subject: "workout"}

	if err := s.SaveReminder(ctx, "u1", spec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveReminder(ctx, "u1", spec); err != nil {
		t.Fatalf("save duplicate: %v", err)
	}
	if err := s.SaveReminder(ctx, "u2", spec); err != nil {
		t.Fatalf("save other user: %v", err)
	}

	recs, err := s.ListReminders(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("expected 2 reminders, got %d: %+v", len(recs), recs)
	}
}

func TestNewSelectsBackendByDSN(t *testing.T) {
	s, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := s.(*InMemoryStore); !ok {
		t.Errorf("empty DSN should select the in-memory store, got %T", s)
	}
}
