package models

// Category is the lexical intent bucket assigned by the router.
type Category string

const (
	// CategoryEscalation routes to the escalation specialist.
	CategoryEscalation Category = "escalation"
	// CategoryNutritionRisk routes medical/nutrition-risk queries to the
	// nutrition expert specialist.
	CategoryNutritionRisk Category = "nutrition_risk"
	// CategoryInjury routes injury/physical-limitation queries to the
	// injury support specialist.
	CategoryInjury Category = "injury"
	// CategoryProgress routes progress updates to the progress tracker.
	CategoryProgress Category = "progress"
	// CategorySchedule routes reminder requests to the check-in scheduler.
	CategorySchedule Category = "schedule"
	// CategoryMeal routes meal planning requests to the meal planner.
	CategoryMeal Category = "meal"
	// CategoryWorkout routes workout requests to the workout recommender.
	CategoryWorkout Category = "workout"
	// CategoryGoal routes goal-setting utterances to the goal analyzer.
	CategoryGoal Category = "goal"
	// CategoryNone means no keyword set matched; the router replies with a
	// generic clarifying message without invoking any handler.
	CategoryNone Category = "none"
)

// CategoryPriority is the fixed evaluation order for classification. The
// first category whose keyword set intersects the utterance tokens wins, so
// this total order is the tie-break policy and must be preserved exactly.
var CategoryPriority = []Category{
	CategoryEscalation,
	CategoryNutritionRisk,
	CategoryInjury,
	CategoryProgress,
	CategorySchedule,
	CategoryMeal,
	CategoryWorkout,
	CategoryGoal,
}

// SpecialistCategories are the categories routed to a specialist agent
// rather than directly to a domain handler.
var SpecialistCategories = map[Category]bool{
	CategoryEscalation:    true,
	CategoryNutritionRisk: true,
	CategoryInjury:        true,
}

// ConfidenceTier distinguishes exact keyword matches from fallback routes.
type ConfidenceTier string

const (
	// TierExact means a category keyword set matched the utterance.
	TierExact ConfidenceTier = "exact"
	// TierFallback means no keyword matched and a fallback path was taken.
	TierFallback ConfidenceTier = "fallback"
)

// RoutingDecision describes how one utterance was routed. It lives for a
// single turn and is never persisted.
type RoutingDecision struct {
	MatchedCategory Category       `json:"matched_category"`
	Tier            ConfidenceTier `json:"confidence_tier"`
	TargetHandler   string         `json:"target_handler,omitempty"`
}

// ValidationResult is the outcome of a guardrail check.
type ValidationResult struct {
	Accepted  bool   `json:"accepted"`
	Reason    string `json:"reason,omitempty"`
	Sanitized string `json:"sanitized,omitempty"`
}

// DisplayHint tells the presentation layer how to render a reply. The core
// has no dependency on how it is actually rendered.
type DisplayHint string

const (
	// DisplayPlain renders the reply as plain text.
	DisplayPlain DisplayHint = "plain"
	// DisplayStructured renders the reply alongside structured plan data.
	DisplayStructured DisplayHint = "structured"
)

// Reply is the final validated response for one turn.
type Reply struct {
	Text     string          `json:"text"`
	Hint     DisplayHint     `json:"display_hint"`
	Decision RoutingDecision `json:"decision"`
}
