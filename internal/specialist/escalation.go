package specialist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/WellnessPipe/internal/handlers"
	"github.com/BTreeMap/WellnessPipe/internal/models"
	"github.com/google/uuid"
)

// Escalation hands the conversation over to a human coach. It is terminal:
// it never requests a handler and its reply ends the routing pass. It is
// also the fail-closed target when a handoff would revisit a specialist.
type Escalation struct {
	newRef func() string
}

// NewEscalation creates the escalation specialist.
func NewEscalation() *Escalation {
	return &Escalation{
		newRef: func() string {
			return fmt.Sprintf("HC-%s", uuid.NewString()[:8])
		},
	}
}

// Name returns the stable specialist name.
func (e *Escalation) Name() string { return models.SpecialistEscalation }

// Assess produces the hand-off reply with a reference ID and marks the
// session escalated.
func (e *Escalation) Assess(ctx context.Context, utterance string, sc *models.SessionContext) (*Assessment, error) {
	ref := e.newRef()
	sc.AddFlag(models.FlagEscalated)
	slog.Info("session escalated to human coach", "user_id", sc.UserID, "reference", ref)
	return &Assessment{
		Reply: fmt.Sprintf(
			"I'm connecting you with a human coach. Your reference number is %s. "+
				"Someone from our team will reach out within one business day. "+
				"In the meantime I'm still here for meal plans, workouts, and progress tracking.", ref),
		Hint: models.DisplayPlain,
	}, nil
}

// Compose is never reached: escalation never requests a handler.
func (e *Escalation) Compose(ctx context.Context, a *Assessment, result *handlers.Result) (string, models.DisplayHint) {
	return a.Reply, a.Hint
}
