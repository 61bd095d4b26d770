package models

import (
	"fmt"
	"testing"
	"time"
)

func TestAppendChatEnforcesCap(t *testing.T) {
	sc := NewSessionContext("user-1", 5)
	for i := 0; i < 20; i++ {
		sc.AppendChat("user", fmt.Sprintf("message %d", i))
		if len(sc.ChatHistory) > 5 {
			t.Fatalf("history exceeded cap after %d appends: %d", i+1, len(sc.ChatHistory))
		}
	}
	if len(sc.ChatHistory) != 5 {
		t.Fatalf("expected history length 5, got %d", len(sc.ChatHistory))
	}
	// Oldest entries are evicted first.
	if sc.ChatHistory[0].Text != "message 15" {
		t.Errorf("expected oldest surviving entry to be message 15, got %q", sc.ChatHistory[0].Text)
	}
	if sc.ChatHistory[4].Text != "message 19" {
		t.Errorf("expected newest entry to be message 19, got %q", sc.ChatHistory[4].Text)
	}
}

func TestAppendProgressIsAppendOnly(t *testing.T) {
	sc := NewSessionContext("user-1", 0)
	sc.AppendProgress("workout", "completed workout")
	first := sc.ProgressLogs[0]

	for i := 0; i < 4; i++ {
		sc.AppendProgress("cardio", fmt.Sprintf("run %d", i))
	}

	if len(sc.ProgressLogs) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(sc.ProgressLogs))
	}
	if sc.ProgressLogs[0] != first {
		t.Errorf("prior entry mutated after appends: %+v", sc.ProgressLogs[0])
	}
	for i := 1; i < len(sc.ProgressLogs); i++ {
		if sc.ProgressLogs[i].Timestamp.Before(sc.ProgressLogs[i-1].Timestamp) {
			t.Errorf("timestamps not monotonically non-decreasing at index %d", i)
		}
	}
}

func TestAppendProgressClampsBackwardsClock(t *testing.T) {
	sc := NewSessionContext("user-1", 0)
	future := time.Now().Add(time.Hour)
	sc.ProgressLogs = append(sc.ProgressLogs, ProgressEntry{Timestamp: future, ActivityType: "workout", Detail: "seeded"})

	entry := sc.AppendProgress("workout", "next")
	if entry.Timestamp.Before(future) {
		t.Errorf("expected clamped timestamp >= %v, got %v", future, entry.Timestamp)
	}
}

func TestSetGoalInvalidatesWorkoutPlan(t *testing.T) {
	sc := NewSessionContext("user-1", 0)
	sc.SetGoal(Goal{Type: GoalLoseWeight, TargetDelta: -5, Unit: UnitKilograms})
	sc.WorkoutPlan = &WorkoutPlan{GoalType: GoalLoseWeight, Difficulty: DifficultyBeginner}

	sc.SetGoal(Goal{Type: GoalBuildMuscle})
	if sc.WorkoutPlan != nil {
		t.Error("workout plan should be invalidated when goal changes")
	}
	if sc.Goal == nil || sc.Goal.Type != GoalBuildMuscle {
		t.Errorf("goal not overwritten: %+v", sc.Goal)
	}
	if sc.Goal.SetAt.IsZero() {
		t.Error("SetGoal should stamp SetAt")
	}
}

func TestMergeScheduleSetSemantics(t *testing.T) {
	sc := NewSessionContext("user-1", 0)
	spec := ReminderSpec{Cadence: CadenceWeekly, Subject: "check-in"}

	if !sc.MergeSchedule(spec) {
		t.Error("first merge should add the spec")
	}
	if sc.MergeSchedule(spec) {
		t.Error("duplicate merge should be a no-op")
	}
	if len(sc.Schedule) != 1 {
		t.Fatalf("expected 1 schedule entry, got %d", len(sc.Schedule))
	}

	if !sc.MergeSchedule(ReminderSpec{Cadence: CadenceDaily, Subject: "check-in"}) {
		t.Error("different cadence should be a distinct spec")
	}
}

func TestFlagsConsumeAndClear(t *testing.T) {
	sc := NewSessionContext("user-1", 0)
	sc.AddFlag(FlagEscalated)
	if !sc.HasFlag(FlagEscalated) {
		t.Fatal("flag should be set")
	}
	if !sc.ConsumeFlag(FlagEscalated) {
		t.Error("consume should report the flag was set")
	}
	if sc.HasFlag(FlagEscalated) {
		t.Error("flag should be cleared after consume")
	}
	if sc.ConsumeFlag(FlagEscalated) {
		t.Error("second consume should report false")
	}
}

func TestParamValidation(t *testing.T) {
	wp := WorkoutParams{Experience: "expert"}
	if err := wp.Validate(); err == nil {
		t.Error("unknown experience level should be rejected")
	}
	wp.Experience = DifficultyAdvanced
	if err := wp.Validate(); err != nil {
		t.Errorf("valid experience rejected: %v", err)
	}

	mp := MealPlanParams{Filters: []DietTag{"carnivore"}}
	if err := mp.Validate(); err == nil {
		t.Error("unknown diet filter should be rejected")
	}

	cp := CheckinParams{Cadence: "hourly", Subject: "check-in"}
	if err := cp.Validate(); err == nil {
		t.Error("unknown cadence should be rejected")
	}
	cp = CheckinParams{Cadence: CadenceWeekly}
	if err := cp.Validate(); err == nil {
		t.Error("empty subject should be rejected")
	}
}
