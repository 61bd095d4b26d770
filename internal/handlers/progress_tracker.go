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

// activityKeywords classify what kind of progress the user is reporting,
// checked in order.
var activityKeywords = []struct {
	phrase   string
	activity string
}{
	{"workout", "workout"},
	{"exercise", "workout"},
	{"gym", "workout"},
	{"training", "workout"},
	{"ran", "workout"},
	{"run", "workout"},
	{"weigh", "weight"},
	{"weight", "weight"},
	{"kg", "weight"},
	{"lb", "weight"},
	{"pound", "weight"},
	{"meal", "meal"},
	{"ate", "meal"},
	{"eating", "meal"},
	{"diet", "meal"},
	{"walk", "activity"},
	{"steps", "activity"},
	{"active", "activity"},
}

// ProgressTracker records progress reports into the append-only session log
// and summarizes the streak. It never mutates or reorders prior entries.
type ProgressTracker struct{}

// NewProgressTracker creates a progress tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{}
}

// Name returns the stable handler name.
func (pt *ProgressTracker) Name() string { return models.HandlerProgressTracker }

// ClassifyActivity derives the activity type from the utterance. Reports that
// match no known activity are logged as "general".
func (pt *ProgressTracker) ClassifyActivity(utterance string) string {
	lower := strings.ToLower(utterance)
	for _, kw := range activityKeywords {
		if strings.Contains(lower, kw.phrase) {
			return kw.activity
		}
	}
	return "general"
}

// Execute appends the progress entry and summarizes recent activity.
func (pt *ProgressTracker) Execute(ctx context.Context, utterance string, sc *models.SessionContext) (*Result, error) {
	activity := pt.ClassifyActivity(utterance)
	entry := sc.AppendProgress(activity, strings.TrimSpace(utterance))
	slog.Info("progress logged", "user_id", sc.UserID, "activity", activity, "entries", len(sc.ProgressLogs))

	msg := fmt.Sprintf("Logged your %s progress. ", activity)
	msg += summarize(sc.ProgressLogs)
	return &Result{Message: msg, Hint: models.DisplayPlain, Progress: &entry}, nil
}

// summarize renders a short recap of the log: total entries, entries in the
// last 7 days, and the most recent activity.
func summarize(logs []models.ProgressEntry) string {
	if len(logs) <= 1 {
		return "This is your first entry, great start!"
	}
	cutoff := time.Now().AddDate(0, 0, -7)
	recent := 0
	for _, e := range logs {
		if e.Timestamp.After(cutoff) {
			recent++
		}
	}
	last := logs[len(logs)-1]
	return fmt.Sprintf("That's %d entries total, %d this week. Keep it up with your %s work!",
		len(logs), recent, last.ActivityType)
}

// GetToolDefinition returns the OpenAI tool definition for progress tracking.
func (pt *ProgressTracker) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        models.HandlerProgressTracker,
			Description: openai.String("Append a progress report (workout, weight, meal, activity) to the user's log"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"activity_type": map[string]interface{}{
						"type": "string",
						"enum": []string{"workout", "weight", "meal", "activity", "general"},
					},
					"detail": map[string]interface{}{
						"type":        "string",
						"description": "The user's own description of the progress",
					},
				},
				"required": []string{"activity_type"},
			},
		},
	}
}
