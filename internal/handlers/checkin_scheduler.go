package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/WellnessPipe/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// ReminderRegistrar receives reminder specs for delivery scheduling. The
// scheduler module implements it; a nil registrar means specs are recorded
// on the session only.
type ReminderRegistrar interface {
	Register(ctx context.Context, userID string, spec models.ReminderSpec) error
}

// subjectKeywords map utterance phrases to reminder subjects, checked in
// order.
var subjectKeywords = []struct {
	phrase  string
	subject string
}{
	{"workout", "workout"},
	{"exercise", "workout"},
	{"train", "workout"},
	{"gym", "workout"},
	{"meal", "meal"},
	{"eat", "meal"},
	{"food", "meal"},
	{"weigh", "weigh-in"},
	{"weight", "weigh-in"},
	{"progress", "progress check-in"},
	{"water", "hydration"},
	{"hydrat", "hydration"},
}

// CheckinScheduler merges reminder specs into the session schedule with set
// semantics and registers new specs for delivery.
type CheckinScheduler struct {
	registrar ReminderRegistrar
}

// NewCheckinScheduler creates a check-in scheduler. registrar may be nil.
func NewCheckinScheduler(registrar ReminderRegistrar) *CheckinScheduler {
	return &CheckinScheduler{registrar: registrar}
}

// Name returns the stable handler name.
func (cs *CheckinScheduler) Name() string { return models.HandlerCheckinScheduler }

// ParseParams derives the cadence and subject from the utterance. Cadence
// defaults to daily, subject to a general check-in.
func (cs *CheckinScheduler) ParseParams(utterance string) models.CheckinParams {
	lower := strings.ToLower(utterance)
	params := models.CheckinParams{Cadence: models.CadenceDaily, Subject: "check-in"}
	if strings.Contains(lower, "week") {
		params.Cadence = models.CadenceWeekly
	}
	for _, kw := range subjectKeywords {
		if strings.Contains(lower, kw.phrase) {
			params.Subject = kw.subject
			break
		}
	}
	return params
}

// Execute merges the reminder into the schedule. Re-requesting an existing
// reminder is acknowledged without creating a duplicate.
func (cs *CheckinScheduler) Execute(ctx context.Context, utterance string, sc *models.SessionContext) (*Result, error) {
	params := cs.ParseParams(utterance)
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrHandlerFailure, err)
	}

	spec := models.ReminderSpec{Cadence: params.Cadence, Subject: params.Subject}
	added := sc.MergeSchedule(spec)
	if !added {
		return &Result{
			Message: fmt.Sprintf("You already have a %s %s reminder set.", spec.Cadence, spec.Subject),
			Hint:    models.DisplayPlain,
		}, nil
	}

	if cs.registrar != nil {
		if err := cs.registrar.Register(ctx, sc.UserID, spec); err != nil {
			// The schedule entry stands; delivery registration is retried at
			// the next boot recovery pass.
			slog.Warn("reminder delivery registration failed", "user_id", sc.UserID, "subject", spec.Subject, "error", err)
		}
	}
	slog.Info("reminder scheduled", "user_id", sc.UserID, "cadence", spec.Cadence, "subject", spec.Subject)
	return &Result{
		Message:  fmt.Sprintf("Done! I'll check in %s about your %s.", cadencePhrase(spec.Cadence), spec.Subject),
		Hint:     models.DisplayPlain,
		Reminder: &spec,
	}, nil
}

func cadencePhrase(c models.Cadence) string {
	if c == models.CadenceWeekly {
		return "every week"
	}
	return "every day"
}

// GetToolDefinition returns the OpenAI tool definition for check-in
// scheduling.
func (cs *CheckinScheduler) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        models.HandlerCheckinScheduler,
			Description: openai.String("Schedule a recurring check-in reminder with a cadence and subject"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"cadence": map[string]interface{}{
						"type": "string",
						"enum": []string{"daily", "weekly"},
					},
					"subject": map[string]interface{}{
						"type":        "string",
						"description": "What the reminder is about, e.g. workout, meal, weigh-in",
					},
				},
				"required": []string{"cadence", "subject"},
			},
		},
	}
}
