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

var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// dietKeywords maps utterance phrases to diet tags.
var dietKeywords = map[string]models.DietTag{
	"vegetarian":  models.DietVegetarian,
	"vegan":       models.DietVegan,
	"keto":        models.DietKeto,
	"ketogenic":   models.DietKeto,
	"gluten-free": models.DietGlutenFree,
	"gluten free": models.DietGlutenFree,
}

// MealPlanner builds 7-day meal plans from the recipe catalog. Dietary
// filters are post-filters over the candidate set; the planner never invents
// a recipe outside the filtered candidates. A planning request replaces the
// whole plan, plans are never partially patched.
type MealPlanner struct{}

// NewMealPlanner creates a meal planner.
func NewMealPlanner() *MealPlanner {
	return &MealPlanner{}
}

// Name returns the stable handler name.
func (mp *MealPlanner) Name() string { return models.HandlerMealPlanner }

// ParseParams derives dietary filters and ingredient exclusions from the
// utterance.
func (mp *MealPlanner) ParseParams(utterance string) models.MealPlanParams {
	lower := strings.ToLower(utterance)
	var params models.MealPlanParams
	for phrase, tag := range dietKeywords {
		if strings.Contains(lower, phrase) && !containsTag(params.Filters, tag) {
			params.Filters = append(params.Filters, tag)
		}
	}
	return params
}

func containsTag(tags []models.DietTag, tag models.DietTag) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// candidates returns catalog recipes for one slot that pass every filter and
// contain no excluded ingredient.
func candidates(slot models.MealSlot, params models.MealPlanParams) []models.Recipe {
	var out []models.Recipe
	for _, r := range mealCatalog {
		if r.Slot != slot {
			continue
		}
		ok := true
		for _, tag := range params.Filters {
			if !r.HasDiet(tag) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for _, ing := range params.Exclusions {
			if r.ContainsIngredient(strings.ToLower(strings.TrimSpace(ing))) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}

// BuildPlan assembles a 7-day plan by rotating through the filtered
// candidates per slot. The rotation is deterministic for a given parameter
// set. It fails when any slot has no candidate left after filtering.
func (mp *MealPlanner) BuildPlan(params models.MealPlanParams) (*models.MealPlan, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrHandlerFailure, err)
	}
	slots := []models.MealSlot{models.SlotBreakfast, models.SlotLunch, models.SlotDinner, models.SlotSnack}
	pools := make(map[models.MealSlot][]models.Recipe, len(slots))
	for _, slot := range slots {
		pool := candidates(slot, params)
		if len(pool) == 0 {
			return nil, fmt.Errorf("%w: no %s recipes satisfy the requested filters", models.ErrHandlerFailure, slot)
		}
		pools[slot] = pool
	}

	plan := &models.MealPlan{
		Filters:    params.Filters,
		Exclusions: params.Exclusions,
		CreatedAt:  time.Now(),
	}
	for day := 0; day < models.MealPlanDays; day++ {
		dp := models.DayPlan{Day: dayNames[day], Meals: make(map[models.MealSlot]models.Recipe, len(slots))}
		for _, slot := range slots {
			pool := pools[slot]
			recipe := pool[day%len(pool)]
			dp.Meals[slot] = recipe
			dp.Calories += recipe.Calories
		}
		plan.Days = append(plan.Days, dp)
	}
	return plan, nil
}

// ExecuteWithParams builds and stores a plan from explicit parameters. The
// nutrition expert uses this path to inject condition-derived exclusions.
func (mp *MealPlanner) ExecuteWithParams(ctx context.Context, params models.MealPlanParams, sc *models.SessionContext) (*Result, error) {
	plan, err := mp.BuildPlan(params)
	if err != nil {
		return nil, err
	}
	sc.MealPlan = plan
	slog.Info("meal plan built", "user_id", sc.UserID, "filters", len(params.Filters), "exclusions", len(params.Exclusions))
	return &Result{
		Message:  renderMealPlan(plan),
		Hint:     models.DisplayStructured,
		MealPlan: plan,
	}, nil
}

// Execute derives parameters from the utterance and builds the plan.
func (mp *MealPlanner) Execute(ctx context.Context, utterance string, sc *models.SessionContext) (*Result, error) {
	return mp.ExecuteWithParams(ctx, mp.ParseParams(utterance), sc)
}

// renderMealPlan formats a plan for the user-facing reply.
func renderMealPlan(plan *models.MealPlan) string {
	var b strings.Builder
	b.WriteString("Here is your 7-day meal plan")
	if len(plan.Filters) > 0 {
		tags := make([]string, len(plan.Filters))
		for i, t := range plan.Filters {
			tags[i] = strings.ReplaceAll(string(t), "_", "-")
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(tags, ", "))
	}
	b.WriteString(":\n")
	for _, day := range plan.Days {
		fmt.Fprintf(&b, "\n%s (~%d kcal):\n", day.Day, day.Calories)
		for _, slot := range []models.MealSlot{models.SlotBreakfast, models.SlotLunch, models.SlotDinner, models.SlotSnack} {
			if r, ok := day.Meals[slot]; ok {
				fmt.Fprintf(&b, "  %s: %s\n", slot, r.Name)
			}
		}
	}
	return b.String()
}

// GetToolDefinition returns the OpenAI tool definition for meal planning.
func (mp *MealPlanner) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        models.HandlerMealPlanner,
			Description: openai.String("Build a 7-day meal plan, optionally restricted by dietary filters and ingredient exclusions"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"filters": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string", "enum": []string{"vegetarian", "vegan", "keto", "gluten_free"}},
						"description": "Diet tags every recipe in the plan must carry",
					},
					"exclusions": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Ingredient names to exclude, e.g. allergens",
					},
				},
			},
		},
	}
}
