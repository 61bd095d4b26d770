// Package models defines handler parameter structures shared by the router,
// the specialists, and the LLM function-calling surface.
package models

import "fmt"

// Handler names used in routing decisions and specialist handler requests.
const (
	HandlerGoalAnalyzer       = "goal_analyzer"
	HandlerMealPlanner        = "meal_planner"
	HandlerWorkoutRecommender = "workout_recommender"
	HandlerProgressTracker    = "progress_tracker"
	HandlerCheckinScheduler   = "checkin_scheduler"
)

// Specialist names carried in the visited set of one routing pass.
const (
	SpecialistEscalation      = "escalation"
	SpecialistNutritionExpert = "nutrition_expert"
	SpecialistInjurySupport   = "injury_support"
)

// WorkoutParams are the utterance-derived parameters for the workout
// recommender. Exclusions name body areas the plan must avoid; the injury
// support specialist fills them from its assessment.
type WorkoutParams struct {
	Experience Difficulty `json:"experience,omitempty"` // defaults to beginner when unspecified
	Exclusions []string   `json:"exclusions,omitempty"`
}

// Validate ensures the workout parameters are valid.
func (wp *WorkoutParams) Validate() error {
	if wp.Experience != "" && !IsValidDifficulty(wp.Experience) {
		return fmt.Errorf("invalid experience level: %s", wp.Experience)
	}
	return nil
}

// MealPlanParams are the utterance-derived parameters for the meal planner.
// Exclusions are ingredient names (allergies); Filters are diet tags applied
// as a post-filter over the candidate recipe set.
type MealPlanParams struct {
	Filters    []DietTag `json:"filters,omitempty"`
	Exclusions []string  `json:"exclusions,omitempty"`
}

// Validate ensures the meal plan parameters are valid.
func (mp *MealPlanParams) Validate() error {
	for _, tag := range mp.Filters {
		if !IsValidDietTag(tag) {
			return fmt.Errorf("invalid diet filter: %s", tag)
		}
	}
	return nil
}

// CheckinParams are the utterance-derived parameters for the check-in
// scheduler.
type CheckinParams struct {
	Cadence Cadence `json:"cadence"`
	Subject string  `json:"subject"`
}

// Validate ensures the check-in parameters are valid.
func (cp *CheckinParams) Validate() error {
	if !IsValidCadence(cp.Cadence) {
		return fmt.Errorf("invalid cadence: %s", cp.Cadence)
	}
	if cp.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	return nil
}

// ProgressParams are the utterance-derived parameters for the progress
// tracker.
type ProgressParams struct {
	ActivityType string `json:"activity_type"`
	Detail       string `json:"detail"`
}

// Validate ensures the progress parameters are valid.
func (pp *ProgressParams) Validate() error {
	if pp.ActivityType == "" {
		return fmt.Errorf("activity_type is required")
	}
	return nil
}

// HandlerRequest is a specialist's nested request for one domain-handler
// call. The router executes the call and hands the result back to the
// specialist for composing.
type HandlerRequest struct {
	Handler string      `json:"handler"`
	Params  interface{} `json:"params,omitempty"`
}
