package handlers

import (
	"context"

	"github.com/BTreeMap/WellnessPipe/internal/models"
	"github.com/openai/openai-go"
)

// Result is the payload one handler produces for a turn. Message is the
// user-facing text; the structured fields feed the output guardrail and the
// presentation layer's display hint.
type Result struct {
	Message     string
	Hint        models.DisplayHint
	Goal        *models.Goal
	MealPlan    *models.MealPlan
	WorkoutPlan *models.WorkoutPlan
	Progress    *models.ProgressEntry
	Reminder    *models.ReminderSpec
}

// Handler is one domain tool: a stateless-per-call function of the utterance
// and the session context.
type Handler interface {
	// Name returns the stable handler name used in routing decisions.
	Name() string

	// Execute derives parameters from the utterance and applies the handler.
	Execute(ctx context.Context, utterance string, sc *models.SessionContext) (*Result, error)
}

// Registry holds the five domain handlers keyed by name.
type Registry struct {
	handlers map[string]Handler

	Goal     *GoalAnalyzer
	Meal     *MealPlanner
	Workout  *WorkoutRecommender
	Progress *ProgressTracker
	Checkin  *CheckinScheduler
}

// NewRegistry creates the registry with all domain handlers. registrar may
// be nil when no reminder delivery is wired (tests, dry runs).
func NewRegistry(registrar ReminderRegistrar) *Registry {
	r := &Registry{
		Goal:     NewGoalAnalyzer(),
		Meal:     NewMealPlanner(),
		Workout:  NewWorkoutRecommender(),
		Progress: NewProgressTracker(),
		Checkin:  NewCheckinScheduler(registrar),
	}
	r.handlers = map[string]Handler{
		r.Goal.Name():     r.Goal,
		r.Meal.Name():     r.Meal,
		r.Workout.Name():  r.Workout,
		r.Progress.Name(): r.Progress,
		r.Checkin.Name():  r.Checkin,
	}
	return r
}

// Get returns the handler registered under name.
func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// ToolDefinitions returns the OpenAI tool schemas for all domain handlers,
// in the order the generation engine should see them.
func (r *Registry) ToolDefinitions() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{
		r.Goal.GetToolDefinition(),
		r.Meal.GetToolDefinition(),
		r.Workout.GetToolDefinition(),
		r.Progress.GetToolDefinition(),
		r.Checkin.GetToolDefinition(),
	}
}
