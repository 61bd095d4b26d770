package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/WellnessPipe/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// experienceKeywords maps utterance phrases to difficulty levels, checked in
// order so the most specific phrase wins.
var experienceKeywords = []struct {
	phrase string
	level  models.Difficulty
}{
	{"beginner", models.DifficultyBeginner},
	{"new to", models.DifficultyBeginner},
	{"just starting", models.DifficultyBeginner},
	{"never worked", models.DifficultyBeginner},
	{"intermediate", models.DifficultyIntermediate},
	{"some experience", models.DifficultyIntermediate},
	{"advanced", models.DifficultyAdvanced},
	{"experienced", models.DifficultyAdvanced},
	{"athlete", models.DifficultyAdvanced},
}

// WorkoutRecommender builds workout plans matched to the session goal and
// the user's experience level. It requires a goal: the router short-circuits
// the call when none is set.
type WorkoutRecommender struct{}

// NewWorkoutRecommender creates a workout recommender.
func NewWorkoutRecommender() *WorkoutRecommender {
	return &WorkoutRecommender{}
}

// Name returns the stable handler name.
func (wr *WorkoutRecommender) Name() string { return models.HandlerWorkoutRecommender }

// ParseParams derives the experience level and any stated body-area
// exclusions from the utterance. Experience defaults to beginner.
func (wr *WorkoutRecommender) ParseParams(utterance string, sc *models.SessionContext) models.WorkoutParams {
	lower := strings.ToLower(utterance)
	params := models.WorkoutParams{Experience: models.DifficultyBeginner}
	for _, kw := range experienceKeywords {
		if strings.Contains(lower, kw.phrase) {
			params.Experience = kw.level
			break
		}
	}
	for _, area := range bodyAreas {
		if strings.Contains(lower, area) {
			params.Exclusions = append(params.Exclusions, area)
		}
	}
	// Injury consultations recorded earlier in the session carry over.
	for _, note := range sc.InjuryNotes {
		if _, ok := exclusionMap[note]; ok && !containsString(params.Exclusions, note) {
			params.Exclusions = append(params.Exclusions, note)
		}
	}
	return params
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// templateFor resolves the workout template for a goal and level.
// Weight-gain goals share the muscle-building templates.
func templateFor(goalType models.GoalType, level models.Difficulty) (workoutTemplate, bool) {
	key := goalType
	if key == models.GoalGainWeight {
		key = models.GoalBuildMuscle
	}
	byLevel, ok := workoutTemplates[key]
	if !ok {
		return workoutTemplate{}, false
	}
	tpl, ok := byLevel[level]
	return tpl, ok
}

// applyExclusions filters out exercises contraindicated for the excluded
// body areas, substituting safe alternatives when a session would empty.
func applyExclusions(exercises []string, areas []string) []string {
	banned := make(map[string]bool)
	for _, area := range areas {
		for _, ex := range exclusionMap[area] {
			banned[ex] = true
		}
	}
	var out []string
	for _, ex := range exercises {
		if !banned[ex] {
			out = append(out, ex)
		}
	}
	if len(out) == 0 {
		out = append(out, safeAlternatives...)
	}
	return out
}

// BuildPlan builds a workout plan for the goal from explicit parameters.
func (wr *WorkoutRecommender) BuildPlan(goal *models.Goal, params models.WorkoutParams) (*models.WorkoutPlan, error) {
	if goal == nil {
		return nil, fmt.Errorf("%w: workout recommendation requires a goal", models.ErrMissingPrecondition)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrHandlerFailure, err)
	}
	level := params.Experience
	if level == "" {
		level = models.DifficultyBeginner
	}
	tpl, ok := templateFor(goal.Type, level)
	if !ok {
		return nil, fmt.Errorf("%w: no template for goal %s at level %s", models.ErrHandlerFailure, goal.Type, level)
	}

	exercises := applyExclusions(tpl.exercises, params.Exclusions)
	plan := &models.WorkoutPlan{
		GoalType:   goal.Type,
		Difficulty: level,
		Exclusions: params.Exclusions,
		CreatedAt:  time.Now(),
	}
	for i := 0; i < tpl.sessions; i++ {
		plan.Sessions = append(plan.Sessions, models.WorkoutSession{
			Name:         fmt.Sprintf("Session %d", i+1),
			Exercises:    exercises,
			MuscleGroups: tpl.muscleGroups,
			Difficulty:   level,
			Minutes:      tpl.minutes,
		})
	}
	return plan, nil
}

// ExecuteWithParams builds and stores a plan from explicit parameters. The
// injury support specialist uses this path to inject assessed exclusions.
func (wr *WorkoutRecommender) ExecuteWithParams(ctx context.Context, params models.WorkoutParams, sc *models.SessionContext) (*Result, error) {
	plan, err := wr.BuildPlan(sc.Goal, params)
	if err != nil {
		return nil, err
	}
	sc.WorkoutPlan = plan
	slog.Info("workout plan built", "user_id", sc.UserID, "goal", plan.GoalType, "difficulty", plan.Difficulty, "exclusions", len(params.Exclusions))
	return &Result{
		Message:     renderWorkoutPlan(plan),
		Hint:        models.DisplayStructured,
		WorkoutPlan: plan,
	}, nil
}

// Execute derives parameters from the utterance and builds the plan.
func (wr *WorkoutRecommender) Execute(ctx context.Context, utterance string, sc *models.SessionContext) (*Result, error) {
	return wr.ExecuteWithParams(ctx, wr.ParseParams(utterance, sc), sc)
}

// renderWorkoutPlan formats a plan for the user-facing reply.
func renderWorkoutPlan(plan *models.WorkoutPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your %s workout plan (%s, %d sessions per week):\n",
		strings.ReplaceAll(string(plan.GoalType), "_", " "), plan.Difficulty, len(plan.Sessions))
	for _, s := range plan.Sessions {
		fmt.Fprintf(&b, "\n%s (%d min): %s\n", s.Name, s.Minutes, strings.Join(s.Exercises, ", "))
	}
	if len(plan.Exclusions) > 0 {
		fmt.Fprintf(&b, "\nAdjusted to avoid stress on: %s.\n", strings.Join(plan.Exclusions, ", "))
	}
	return b.String()
}

// GetToolDefinition returns the OpenAI tool definition for workout
// recommendation.
func (wr *WorkoutRecommender) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        models.HandlerWorkoutRecommender,
			Description: openai.String("Build a workout plan for the active goal, tuned to experience level and body-area exclusions"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"experience": map[string]interface{}{
						"type": "string",
						"enum": []string{"beginner", "intermediate", "advanced"},
					},
					"exclusions": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Body areas the plan must avoid stressing",
					},
				},
			},
		},
	}
}
