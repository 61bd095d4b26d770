package specialist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/WellnessPipe/internal/handlers"
	"github.com/BTreeMap/WellnessPipe/internal/models"
)

// dietaryCondition is one recognized medical dietary constraint.
type dietaryCondition struct {
	name       string
	advice     string
	exclusions []string
	filters    []models.DietTag
}

// conditionRules map utterance phrases onto conditions, checked in order so
// the most specific condition wins.
var conditionRules = []struct {
	phrases   []string
	condition dietaryCondition
}{
	{
		phrases: []string{"diabetes", "diabetic", "blood sugar"},
		condition: dietaryCondition{
			name: "diabetes",
			advice: "With diabetes, steady blood sugar matters more than any single meal: favor " +
				"high-fiber carbohydrates, lean protein, and regular meal timing, and limit added sugars.",
			exclusions: []string{"granola", "fruit"},
		},
	},
	{
		phrases: []string{"hypertension", "blood pressure"},
		condition: dietaryCondition{
			name: "hypertension",
			advice: "For blood pressure, keep sodium low: fresh ingredients over processed food, " +
				"and plenty of potassium-rich vegetables.",
			exclusions: []string{"bacon", "soy sauce", "cheese"},
		},
	},
	{
		phrases: []string{"nut allergy", "allergic to nuts", "peanut"},
		condition: dietaryCondition{
			name:       "nut allergy",
			advice:     "I'll keep all nuts out of your meals.",
			exclusions: []string{"nuts"},
		},
	},
	{
		phrases: []string{"egg allergy", "allergic to eggs"},
		condition: dietaryCondition{
			name:       "egg allergy",
			advice:     "I'll keep eggs out of your meals.",
			exclusions: []string{"eggs"},
		},
	},
	{
		phrases: []string{"dairy", "lactose"},
		condition: dietaryCondition{
			name:       "dairy intolerance",
			advice:     "I'll keep dairy out of your meals.",
			exclusions: []string{"yogurt", "cheese", "mozzarella"},
		},
	},
	{
		phrases: []string{"celiac", "gluten"},
		condition: dietaryCondition{
			name:    "gluten sensitivity",
			advice:  "I'll stick to gluten-free meals for you.",
			filters: []models.DietTag{models.DietGlutenFree},
		},
	},
}

// NutritionExpert handles utterances that mix nutrition with medical
// conditions. It identifies the condition, then requests one meal-planner
// call with condition-derived exclusions when a goal is set; without a goal
// it gives condition advice plus a prompt to set one.
type NutritionExpert struct{}

// NewNutritionExpert creates the nutrition expert.
func NewNutritionExpert() *NutritionExpert {
	return &NutritionExpert{}
}

// Name returns the stable specialist name.
func (ne *NutritionExpert) Name() string { return models.SpecialistNutritionExpert }

// detectCondition identifies the dietary condition in the utterance.
func detectCondition(utterance string) (dietaryCondition, bool) {
	lower := strings.ToLower(utterance)
	for _, rule := range conditionRules {
		for _, p := range rule.phrases {
			if strings.Contains(lower, p) {
				return rule.condition, true
			}
		}
	}
	return dietaryCondition{}, false
}

// Assess identifies the condition and decides whether a meal plan can be
// built.
func (ne *NutritionExpert) Assess(ctx context.Context, utterance string, sc *models.SessionContext) (*Assessment, error) {
	cond, found := detectCondition(utterance)
	if !found {
		return &Assessment{
			Reply: "I want to make sure I account for your condition correctly. Could you tell me " +
				"more specifically what it is? For example: diabetes, high blood pressure, or a food allergy.",
			Hint: models.DisplayPlain,
		}, nil
	}
	slog.Info("dietary condition identified", "user_id", sc.UserID, "condition", cond.name)

	intro := fmt.Sprintf("Noted, I'll account for your %s. %s", cond.name, cond.advice)
	if sc.Goal == nil {
		return &Assessment{
			Reply: intro + " Tell me your fitness goal and I'll build a meal plan around both.",
			Hint:  models.DisplayPlain,
		}, nil
	}

	return &Assessment{
		advice: intro,
		Request: &models.HandlerRequest{
			Handler: models.HandlerMealPlanner,
			Params: models.MealPlanParams{
				Filters:    cond.filters,
				Exclusions: cond.exclusions,
			},
		},
	}, nil
}

// Compose prefixes the condition advice to the meal-planner result.
func (ne *NutritionExpert) Compose(ctx context.Context, a *Assessment, result *handlers.Result) (string, models.DisplayHint) {
	if result == nil {
		return a.advice + " I couldn't build a plan right now, ask me again in a moment.", models.DisplayPlain
	}
	return a.advice + "\n\n" + result.Message, result.Hint
}
