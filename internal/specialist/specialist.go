// Package specialist implements the three specialist agents: escalation,
// nutrition expert, and injury support.
//
// Each specialist runs a two-phase protocol driven by the router. Assess
// inspects the utterance and session and returns either a final reply or a
// single domain-handler request; the router executes the request and hands
// the result back through Compose, which merges it into the final reply. A
// specialist never calls a handler directly and never hands off to another
// specialist.
package specialist

import (
	"context"

	"github.com/BTreeMap/WellnessPipe/internal/handlers"
	"github.com/BTreeMap/WellnessPipe/internal/models"
)

// Assessment is the outcome of a specialist's assess phase. When Request is
// nil the Reply is final; otherwise the router runs the requested handler
// and calls Compose with its result.
type Assessment struct {
	Reply   string
	Hint    models.DisplayHint
	Request *models.HandlerRequest

	// advice carries assess-phase findings into the compose phase.
	advice string
}

// Specialist is one specialist agent.
type Specialist interface {
	// Name returns the stable specialist name carried in the visited set.
	Name() string

	// Assess inspects the utterance and session state.
	Assess(ctx context.Context, utterance string, sc *models.SessionContext) (*Assessment, error)

	// Compose merges a handler result into the final reply. It is only
	// called when Assess returned a handler request.
	Compose(ctx context.Context, a *Assessment, result *handlers.Result) (string, models.DisplayHint)
}

// Registry holds the three specialists keyed by name.
type Registry struct {
	specialists map[string]Specialist

	Escalation *Escalation
	Nutrition  *NutritionExpert
	Injury     *InjurySupport
}

// NewRegistry creates the registry with all specialists.
func NewRegistry() *Registry {
	r := &Registry{
		Escalation: NewEscalation(),
		Nutrition:  NewNutritionExpert(),
		Injury:     NewInjurySupport(),
	}
	r.specialists = map[string]Specialist{
		r.Escalation.Name(): r.Escalation,
		r.Nutrition.Name():  r.Nutrition,
		r.Injury.Name():     r.Injury,
	}
	return r
}

// Get returns the specialist registered under name.
func (r *Registry) Get(name string) (Specialist, bool) {
	s, ok := r.specialists[name]
	return s, ok
}
