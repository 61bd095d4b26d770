// Package guardrails provides the validation gates applied around routing.
//
// The input gate runs before classification; the output gate runs before a
// structured reply is handed to formatting. Both are pure functions over
// their inputs plus the static configuration.
package guardrails

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/WellnessPipe/internal/models"
)

// Input validates and sanitizes incoming utterances.
type Input struct {
	maxLength int
	denyList  []string
}

// NewInput creates the input guardrail with the configured limits.
func NewInput(maxLength int, denyList []string) *Input {
	if maxLength <= 0 {
		maxLength = models.MaxUtteranceLength
	}
	lowered := make([]string, len(denyList))
	for i, entry := range denyList {
		lowered[i] = strings.ToLower(entry)
	}
	return &Input{maxLength: maxLength, denyList: lowered}
}

// Check validates one utterance. On acceptance, Sanitized carries the
// trimmed, whitespace-collapsed text that downstream stages operate on.
func (g *Input) Check(utterance string) models.ValidationResult {
	sanitized := strings.Join(strings.Fields(utterance), " ")
	if len(sanitized) < models.MinUtteranceLength {
		return models.ValidationResult{Accepted: false, Reason: "utterance empty or too short"}
	}
	if len(sanitized) > g.maxLength {
		return models.ValidationResult{
			Accepted: false,
			Reason:   fmt.Sprintf("utterance exceeds maximum length of %d", g.maxLength),
		}
	}
	lowered := strings.ToLower(sanitized)
	for _, blocked := range g.denyList {
		if blocked != "" && strings.Contains(lowered, blocked) {
			return models.ValidationResult{Accepted: false, Reason: "utterance contains disallowed content"}
		}
	}
	return models.ValidationResult{Accepted: true, Sanitized: sanitized}
}

// Output shape-checks structured replies before emission. Calorie bounds are
// per meal; anything outside them indicates a malformed catalog entry rather
// than an unusual diet.
const (
	minMealCalories = 50
	maxMealCalories = 2000
)

// Output validates structured payloads produced by handlers.
type Output struct{}

// NewOutput creates the output guardrail.
func NewOutput() *Output {
	return &Output{}
}

// CheckReplyText validates a plain-text reply.
func (g *Output) CheckReplyText(text string) models.ValidationResult {
	if strings.TrimSpace(text) == "" {
		return models.ValidationResult{Accepted: false, Reason: "reply text is empty"}
	}
	return models.ValidationResult{Accepted: true, Sanitized: text}
}

// CheckMealPlan validates the shape of a generated meal plan: exactly seven
// days, every day non-empty, every recipe named with in-range calories.
func (g *Output) CheckMealPlan(plan *models.MealPlan) models.ValidationResult {
	if plan == nil {
		return models.ValidationResult{Accepted: false, Reason: "meal plan is missing"}
	}
	if len(plan.Days) != models.MealPlanDays {
		return models.ValidationResult{
			Accepted: false,
			Reason:   fmt.Sprintf("meal plan must have %d days, got %d", models.MealPlanDays, len(plan.Days)),
		}
	}
	for _, day := range plan.Days {
		if len(day.Meals) == 0 {
			return models.ValidationResult{Accepted: false, Reason: fmt.Sprintf("day %s has no meals", day.Day)}
		}
		for slot, recipe := range day.Meals {
			if recipe.Name == "" {
				return models.ValidationResult{Accepted: false, Reason: fmt.Sprintf("day %s slot %s has an unnamed recipe", day.Day, slot)}
			}
			if recipe.Calories < minMealCalories || recipe.Calories > maxMealCalories {
				return models.ValidationResult{
					Accepted: false,
					Reason:   fmt.Sprintf("recipe %s has calories out of range: %d", recipe.Name, recipe.Calories),
				}
			}
		}
	}
	return models.ValidationResult{Accepted: true}
}

// CheckWorkoutPlan validates the shape of a generated workout plan.
func (g *Output) CheckWorkoutPlan(plan *models.WorkoutPlan) models.ValidationResult {
	if plan == nil {
		return models.ValidationResult{Accepted: false, Reason: "workout plan is missing"}
	}
	if !models.IsValidDifficulty(plan.Difficulty) {
		return models.ValidationResult{Accepted: false, Reason: fmt.Sprintf("unknown difficulty: %s", plan.Difficulty)}
	}
	if len(plan.Sessions) == 0 {
		return models.ValidationResult{Accepted: false, Reason: "workout plan has no sessions"}
	}
	for _, session := range plan.Sessions {
		if len(session.Exercises) == 0 {
			return models.ValidationResult{Accepted: false, Reason: fmt.Sprintf("session %s has no exercises", session.Name)}
		}
		if session.Minutes <= 0 {
			return models.ValidationResult{Accepted: false, Reason: fmt.Sprintf("session %s has non-positive duration", session.Name)}
		}
	}
	return models.ValidationResult{Accepted: true}
}
