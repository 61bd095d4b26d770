package specialist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/WellnessPipe/internal/handlers"
	"github.com/BTreeMap/WellnessPipe/internal/models"
)

// injuryAreas map utterance phrases onto the body area a workout plan must
// avoid, checked in order.
var injuryAreas = []struct {
	phrases []string
	area    string
	advice  string
}{
	{
		phrases: []string{"knee", "kneecap"},
		area:    "knee",
		advice:  "Skip high-impact and deep-bend movements while your knee recovers; swimming and cycling keep you moving without the load.",
	},
	{
		phrases: []string{"back", "spine", "lumbar"},
		area:    "back",
		advice:  "Avoid heavy loaded lifts for now; core stability work and walking usually help a recovering back.",
	},
	{
		phrases: []string{"shoulder", "rotator"},
		area:    "shoulder",
		advice:  "Keep overhead pressing and pulling off the menu until the shoulder settles; lower-body work stays fully open.",
	},
	{
		phrases: []string{"ankle"},
		area:    "ankle",
		advice:  "Stay off impact work while the ankle heals; seated and water-based training carry the load instead.",
	},
	{
		phrases: []string{"foot", "feet", "plantar"},
		area:    "foot",
		advice:  "Off-feet training keeps you progressing while your foot recovers.",
	},
	{
		phrases: []string{"wrist"},
		area:    "wrist",
		advice:  "Avoid loading the wrist in push positions; machine and lower-body work stay available.",
	},
}

// InjurySupport handles injuries and physical limitations. It identifies the
// affected body area, records an injury note on the session, and when a goal
// is set requests one workout-recommender call with the matching exclusion.
type InjurySupport struct{}

// NewInjurySupport creates the injury support specialist.
func NewInjurySupport() *InjurySupport {
	return &InjurySupport{}
}

// Name returns the stable specialist name.
func (is *InjurySupport) Name() string { return models.SpecialistInjurySupport }

// detectArea identifies the injured body area in the utterance.
func detectArea(utterance string) (area, advice string, found bool) {
	lower := strings.ToLower(utterance)
	for _, rule := range injuryAreas {
		for _, p := range rule.phrases {
			if strings.Contains(lower, p) {
				return rule.area, rule.advice, true
			}
		}
	}
	return "", "", false
}

// Assess identifies the area, records the note, and decides whether an
// adapted workout plan can be built.
func (is *InjurySupport) Assess(ctx context.Context, utterance string, sc *models.SessionContext) (*Assessment, error) {
	area, advice, found := detectArea(utterance)
	if !found {
		return &Assessment{
			Reply: "Sorry to hear you're hurting. Which body area is affected? Knowing that lets me " +
				"adapt your workouts safely. If the pain is severe or getting worse, please see a professional.",
			Hint: models.DisplayPlain,
		}, nil
	}
	sc.AddInjuryNote(area)
	slog.Info("injury recorded", "user_id", sc.UserID, "area", area)

	intro := fmt.Sprintf("Noted your %s issue. %s", area, advice)
	if sc.Goal == nil {
		return &Assessment{
			Reply: intro + " Tell me your fitness goal and I'll build a plan that works around it.",
			Hint:  models.DisplayPlain,
		}, nil
	}

	experience := models.DifficultyBeginner
	if sc.WorkoutPlan != nil {
		experience = sc.WorkoutPlan.Difficulty
	}
	return &Assessment{
		advice: intro,
		Request: &models.HandlerRequest{
			Handler: models.HandlerWorkoutRecommender,
			Params: models.WorkoutParams{
				Experience: experience,
				Exclusions: []string{area},
			},
		},
	}, nil
}

// Compose prefixes the injury advice to the adapted workout plan.
func (is *InjurySupport) Compose(ctx context.Context, a *Assessment, result *handlers.Result) (string, models.DisplayHint) {
	if result == nil {
		return a.advice + " I couldn't rebuild your plan right now, ask me again in a moment.", models.DisplayPlain
	}
	return a.advice + "\n\nHere's your adjusted plan:\n" + result.Message, result.Hint
}
