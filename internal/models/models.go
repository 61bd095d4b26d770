// Package models defines the core data structures for WellnessPipe.
//
// It includes the per-user session context, routing decisions, and validation
// results, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// GoalType identifies what the user is trying to achieve.
type GoalType string

const (
	// GoalLoseWeight is a weight-reduction goal.
	GoalLoseWeight GoalType = "lose_weight"
	// GoalGainWeight is a weight-gain goal.
	GoalGainWeight GoalType = "gain_weight"
	// GoalBuildMuscle is a muscle-building goal.
	GoalBuildMuscle GoalType = "build_muscle"
	// GoalGeneralFitness is a catch-all fitness goal.
	GoalGeneralFitness GoalType = "general_fitness"
)

// IsValidGoalType checks if the given goal type is supported.
func IsValidGoalType(gt GoalType) bool {
	switch gt {
	case GoalLoseWeight, GoalGainWeight, GoalBuildMuscle, GoalGeneralFitness:
		return true
	default:
		return false
	}
}

// WeightUnit is the unit the user stated their target in. Quantities are kept
// in the stated unit; only spelling is normalized ("pounds" -> lb). No kg/lb
// arithmetic conversion is performed.
type WeightUnit string

const (
	// UnitKilograms is the metric weight unit.
	UnitKilograms WeightUnit = "kg"
	// UnitPounds is the imperial weight unit.
	UnitPounds WeightUnit = "lb"
)

// DurationUnit is the unit of a goal time span.
type DurationUnit string

const (
	// DurationWeeks counts the goal span in weeks.
	DurationWeeks DurationUnit = "weeks"
	// DurationMonths counts the goal span in months.
	DurationMonths DurationUnit = "months"
)

// GoalDuration is the time span the user wants to reach their goal in.
// No week/month conversion is applied.
type GoalDuration struct {
	Amount int          `json:"amount"`
	Unit   DurationUnit `json:"unit"`
}

// Goal is the structured fitness goal for a session. TargetDelta is signed:
// negative for weight loss, positive for gain. Zero means no numeric target
// was stated.
type Goal struct {
	Type        GoalType      `json:"type"`
	TargetDelta int           `json:"target_delta,omitempty"`
	Unit        WeightUnit    `json:"unit,omitempty"`
	Duration    *GoalDuration `json:"duration,omitempty"`
	SetAt       time.Time     `json:"set_at"`
}

// MealSlot names a meal position within a day plan.
type MealSlot string

const (
	SlotBreakfast MealSlot = "breakfast"
	SlotLunch     MealSlot = "lunch"
	SlotDinner    MealSlot = "dinner"
	SlotSnack     MealSlot = "snack"
)

// DietTag classifies a recipe for dietary filtering.
type DietTag string

const (
	DietVegetarian DietTag = "vegetarian"
	DietVegan      DietTag = "vegan"
	DietKeto       DietTag = "keto"
	DietGlutenFree DietTag = "gluten_free"
)

// IsValidDietTag checks if the given diet tag is supported.
func IsValidDietTag(dt DietTag) bool {
	switch dt {
	case DietVegetarian, DietVegan, DietKeto, DietGlutenFree:
		return true
	default:
		return false
	}
}

// Recipe is one entry in the meal catalog.
type Recipe struct {
	Name        string    `json:"name"`
	Slot        MealSlot  `json:"slot"`
	Diets       []DietTag `json:"diets,omitempty"`
	Ingredients []string  `json:"ingredients,omitempty"`
	Calories    int       `json:"calories"`
}

// HasDiet reports whether the recipe carries the given diet tag.
func (r Recipe) HasDiet(tag DietTag) bool {
	for _, d := range r.Diets {
		if d == tag {
			return true
		}
	}
	return false
}

// ContainsIngredient reports whether the recipe lists the given ingredient.
func (r Recipe) ContainsIngredient(name string) bool {
	for _, ing := range r.Ingredients {
		if ing == name {
			return true
		}
	}
	return false
}

// DayPlan maps meal slots to recipes for one day.
type DayPlan struct {
	Day      string              `json:"day"`
	Meals    map[MealSlot]Recipe `json:"meals"`
	Calories int                 `json:"calories"`
}

// MealPlanDays is the fixed length of a meal plan.
const MealPlanDays = 7

// MealPlan is a 7-day meal plan. Plans are regenerated wholesale on each
// planning request, never partially patched.
type MealPlan struct {
	Filters    []DietTag `json:"filters,omitempty"`
	Exclusions []string  `json:"exclusions,omitempty"`
	Days       []DayPlan `json:"days"`
	CreatedAt  time.Time `json:"created_at"`
}

// Difficulty is the workout experience level.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// IsValidDifficulty checks if the given difficulty is supported.
func IsValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// WorkoutSession is one workout within a plan.
type WorkoutSession struct {
	Name         string     `json:"name"`
	Exercises    []string   `json:"exercises"`
	MuscleGroups []string   `json:"muscle_groups,omitempty"`
	Difficulty   Difficulty `json:"difficulty"`
	Minutes      int        `json:"minutes"`
}

// WorkoutPlan is an ordered sequence of workout sessions built for a goal.
// It is invalidated (not regenerated) when the goal changes.
type WorkoutPlan struct {
	GoalType   GoalType         `json:"goal_type"`
	Difficulty Difficulty       `json:"difficulty"`
	Sessions   []WorkoutSession `json:"sessions"`
	Exclusions []string         `json:"exclusions,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// ProgressEntry is one append-only progress log record.
type ProgressEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	ActivityType string    `json:"activity_type"`
	Detail       string    `json:"detail"`
}

// Cadence is how often a reminder recurs.
type Cadence string

const (
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
)

// IsValidCadence checks if the given cadence is supported.
func IsValidCadence(c Cadence) bool {
	return c == CadenceDaily || c == CadenceWeekly
}

// ReminderSpec is one recurring reminder. Specs form a set keyed by
// (cadence, subject).
type ReminderSpec struct {
	Cadence Cadence `json:"cadence"`
	Subject string  `json:"subject"`
}

// ChatMessage is one entry in the bounded chat history.
type ChatMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Well-known session flags.
const (
	// FlagEscalated marks that the escalation specialist handled a turn.
	FlagEscalated = "escalated"
	// FlagAwaitingConfirmation marks a pending confirmation from the user.
	FlagAwaitingConfirmation = "awaiting_confirmation"
)

// Validation constants shared across modules.
const (
	// MaxUtteranceLength defines the maximum allowed length for one utterance.
	MaxUtteranceLength = 2000
	// MinUtteranceLength defines the minimum meaningful utterance length.
	MinUtteranceLength = 3
	// DefaultChatHistoryCap bounds the chat history when no cap is configured.
	DefaultChatHistoryCap = 50
	// MaxUpstreamRetries bounds retries of the generation engine. Only
	// transport failures are retried, never content-validation failures.
	MaxUpstreamRetries = 1
)

// Error variables for better error handling and testability. All of these are
// caught at the router boundary and converted to a user-visible degraded
// message; none propagate past the router.
var (
	ErrInputRejected       = errors.New("input rejected by guardrail")
	ErrMissingPrecondition = errors.New("missing precondition")
	ErrHandlerFailure      = errors.New("handler failure")
	ErrOutputShapeInvalid  = errors.New("output rejected by guardrail")
	ErrUpstreamTimeout     = errors.New("generation engine timed out")
	ErrUpstreamTransport   = errors.New("generation engine transport failure")
	ErrSpecialistRevisit   = errors.New("specialist already visited in this routing pass")
	ErrUnknownHandler      = errors.New("unknown handler")
)

// SessionContext is the mutable per-user state carried across turns. It is
// owned exclusively by the router for the session's lifetime and mutated in
// place by handlers, never replaced. Mutation goes through the methods below
// so the invariants hold after every turn.
type SessionContext struct {
	UserID       string          `json:"user_id"`
	Goal         *Goal           `json:"goal,omitempty"`
	MealPlan     *MealPlan       `json:"meal_plan,omitempty"`
	WorkoutPlan  *WorkoutPlan    `json:"workout_plan,omitempty"`
	ProgressLogs []ProgressEntry `json:"progress_logs,omitempty"`
	Schedule     []ReminderSpec  `json:"schedule,omitempty"`
	ChatHistory  []ChatMessage   `json:"chat_history,omitempty"`
	Flags        map[string]bool `json:"flags,omitempty"`
	InjuryNotes  []string        `json:"injury_notes,omitempty"`
	HistoryCap   int             `json:"history_cap,omitempty"`
}

// NewSessionContext creates a session context for a user. A historyCap of 0
// selects DefaultChatHistoryCap.
func NewSessionContext(userID string, historyCap int) *SessionContext {
	if historyCap <= 0 {
		historyCap = DefaultChatHistoryCap
	}
	return &SessionContext{
		UserID:     userID,
		Flags:      make(map[string]bool),
		HistoryCap: historyCap,
	}
}

// historyCap returns the effective chat history cap.
func (sc *SessionContext) historyCap() int {
	if sc.HistoryCap <= 0 {
		return DefaultChatHistoryCap
	}
	return sc.HistoryCap
}

// SetGoal overwrites the active goal and invalidates any workout plan built
// for the previous goal. The plan is not regenerated automatically.
func (sc *SessionContext) SetGoal(g Goal) {
	if g.SetAt.IsZero() {
		g.SetAt = time.Now()
	}
	sc.Goal = &g
	sc.WorkoutPlan = nil
}

// AppendProgress appends one progress entry. Entries are never reordered or
// mutated after append; timestamps stay monotonically non-decreasing.
func (sc *SessionContext) AppendProgress(activityType, detail string) ProgressEntry {
	ts := time.Now()
	if n := len(sc.ProgressLogs); n > 0 && ts.Before(sc.ProgressLogs[n-1].Timestamp) {
		ts = sc.ProgressLogs[n-1].Timestamp
	}
	entry := ProgressEntry{Timestamp: ts, ActivityType: activityType, Detail: detail}
	sc.ProgressLogs = append(sc.ProgressLogs, entry)
	return entry
}

// AppendChat appends one chat message, evicting the oldest entries beyond the
// configured cap.
func (sc *SessionContext) AppendChat(role, text string) {
	sc.ChatHistory = append(sc.ChatHistory, ChatMessage{Role: role, Text: text, Timestamp: time.Now()})
	if limit := sc.historyCap(); len(sc.ChatHistory) > limit {
		excess := len(sc.ChatHistory) - limit
		sc.ChatHistory = append(sc.ChatHistory[:0], sc.ChatHistory[excess:]...)
	}
}

// MergeSchedule adds a reminder spec with set semantics. It reports whether
// the spec was newly added.
func (sc *SessionContext) MergeSchedule(spec ReminderSpec) bool {
	for _, existing := range sc.Schedule {
		if existing == spec {
			return false
		}
	}
	sc.Schedule = append(sc.Schedule, spec)
	return true
}

// AddFlag sets a transient marker on the session.
func (sc *SessionContext) AddFlag(name string) {
	if sc.Flags == nil {
		sc.Flags = make(map[string]bool)
	}
	sc.Flags[name] = true
}

// HasFlag reports whether a marker is set.
func (sc *SessionContext) HasFlag(name string) bool {
	return sc.Flags[name]
}

// ConsumeFlag clears a marker and reports whether it was set.
func (sc *SessionContext) ConsumeFlag(name string) bool {
	if !sc.Flags[name] {
		return false
	}
	delete(sc.Flags, name)
	return true
}

// AddInjuryNote records an injury consultation for later workout exclusions.
func (sc *SessionContext) AddInjuryNote(note string) {
	sc.InjuryNotes = append(sc.InjuryNotes, note)
}
