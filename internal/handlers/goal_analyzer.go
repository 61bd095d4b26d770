package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/BTreeMap/WellnessPipe/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// Goal extraction patterns. Quantities are kept in the stated unit; only the
// spelling is normalized.
var (
	weightGoalPattern = regexp.MustCompile(`(?i)\b(lose|gain)\s+(\d+)\s*(kg|kgs|kilograms?|lbs?|pounds?)(?:\s+in\s+(\d+)\s*(weeks?|months?))?`)
	musclePattern     = regexp.MustCompile(`(?i)\b(?:build|gain)\s+(?:muscle|strength)(?:\s+in\s+(\d+)\s*(weeks?|months?))?`)
	fitnessPattern    = regexp.MustCompile(`(?i)(?:my|general|normal)?\s*fitness|get\s+(?:fit|healthy|in\s+shape)`)
	timeframePattern  = regexp.MustCompile(`(?i)\bin\s+(\d+)\s*(weeks?|months?)`)
)

// Default timeframes applied when the utterance states none.
var (
	defaultMuscleDuration  = models.GoalDuration{Amount: 3, Unit: models.DurationMonths}
	defaultFitnessDuration = models.GoalDuration{Amount: 2, Unit: models.DurationMonths}
)

// Last-resort goal keywords. An utterance that mentions one without a
// parseable quantity still sets a default general-fitness goal.
var (
	fallbackGoalTokens  = []string{"lose", "gain"}
	fallbackGoalPhrases = []string{"improve muscle"}
)

// GoalAnalyzer converts goal-setting utterances into a structured goal. It
// reads only the prior goal (to detect conflicting updates) and writes the
// new one; setting a goal invalidates any workout plan built for the old one.
type GoalAnalyzer struct{}

// NewGoalAnalyzer creates a goal analyzer.
func NewGoalAnalyzer() *GoalAnalyzer {
	return &GoalAnalyzer{}
}

// Name returns the stable handler name.
func (ga *GoalAnalyzer) Name() string { return models.HandlerGoalAnalyzer }

// normalizeWeightUnit maps unit spellings onto the canonical units.
func normalizeWeightUnit(raw string) models.WeightUnit {
	switch strings.TrimSuffix(strings.ToLower(raw), "s") {
	case "kg", "kilogram":
		return models.UnitKilograms
	default:
		return models.UnitPounds
	}
}

// normalizeDurationUnit maps duration spellings onto the canonical units.
func normalizeDurationUnit(raw string) models.DurationUnit {
	if strings.HasPrefix(strings.ToLower(raw), "week") {
		return models.DurationWeeks
	}
	return models.DurationMonths
}

// parseTimeframe extracts an "in N weeks/months" span, if present.
func parseTimeframe(utterance string) *models.GoalDuration {
	m := timeframePattern.FindStringSubmatch(utterance)
	if m == nil {
		return nil
	}
	amount, err := strconv.Atoi(m[1])
	if err != nil || amount <= 0 {
		return nil
	}
	return &models.GoalDuration{Amount: amount, Unit: normalizeDurationUnit(m[2])}
}

// ExtractGoal parses a structured goal from the utterance. It returns false
// when no goal pattern matches.
func (ga *GoalAnalyzer) ExtractGoal(utterance string) (models.Goal, bool) {
	if m := weightGoalPattern.FindStringSubmatch(utterance); m != nil {
		quantity, err := strconv.Atoi(m[2])
		if err != nil || quantity <= 0 {
			return models.Goal{}, false
		}
		goal := models.Goal{Unit: normalizeWeightUnit(m[3])}
		if strings.EqualFold(m[1], "lose") {
			goal.Type = models.GoalLoseWeight
			goal.TargetDelta = -quantity
		} else {
			goal.Type = models.GoalGainWeight
			goal.TargetDelta = quantity
		}
		if m[4] != "" {
			amount, _ := strconv.Atoi(m[4])
			goal.Duration = &models.GoalDuration{Amount: amount, Unit: normalizeDurationUnit(m[5])}
		}
		return goal, true
	}

	if m := musclePattern.FindStringSubmatch(utterance); m != nil {
		goal := models.Goal{Type: models.GoalBuildMuscle}
		if m[1] != "" {
			amount, _ := strconv.Atoi(m[1])
			goal.Duration = &models.GoalDuration{Amount: amount, Unit: normalizeDurationUnit(m[2])}
		} else {
			d := defaultMuscleDuration
			goal.Duration = &d
		}
		return goal, true
	}

	if fitnessPattern.MatchString(utterance) {
		goal := models.Goal{Type: models.GoalGeneralFitness}
		if tf := parseTimeframe(utterance); tf != nil {
			goal.Duration = tf
		} else {
			d := defaultFitnessDuration
			goal.Duration = &d
		}
		return goal, true
	}

	if matchesFallbackKeyword(utterance) {
		return fallbackGoal(utterance), true
	}

	return models.Goal{}, false
}

// matchesFallbackKeyword reports whether the utterance states a goal in
// keywords only ("I want to lose weight").
func matchesFallbackKeyword(utterance string) bool {
	lowered := strings.ToLower(utterance)
	for _, phrase := range fallbackGoalPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	for _, tok := range strings.Fields(lowered) {
		tok = strings.Trim(tok, ".,!?")
		for _, kw := range fallbackGoalTokens {
			if tok == kw {
				return true
			}
		}
	}
	return false
}

// fallbackGoal builds the default goal for keyword-only statements: general
// fitness, with the stated timeframe when one is present.
func fallbackGoal(utterance string) models.Goal {
	goal := models.Goal{Type: models.GoalGeneralFitness}
	if tf := parseTimeframe(utterance); tf != nil {
		goal.Duration = tf
	} else {
		d := defaultFitnessDuration
		goal.Duration = &d
	}
	return goal
}

// Execute parses and stores the goal. An unparseable goal is not a failure:
// the reply asks the user to restate it.
func (ga *GoalAnalyzer) Execute(ctx context.Context, utterance string, sc *models.SessionContext) (*Result, error) {
	goal, ok := ga.ExtractGoal(utterance)
	if !ok {
		slog.Debug("goal analyzer: no goal pattern matched", "user_id", sc.UserID)
		sc.AddFlag(models.FlagAwaitingConfirmation)
		return &Result{
			Hint: models.DisplayPlain,
			Message: "I couldn't quite pin down your goal. Try phrases like " +
				"\"I want to lose 5kg in 2 months\", \"gain 4 pounds in 4 weeks\", " +
				"or \"build muscle in 3 months\".",
		}, nil
	}

	previous := sc.Goal
	sc.SetGoal(goal)
	slog.Info("goal set", "user_id", sc.UserID, "type", goal.Type, "target_delta", goal.TargetDelta, "unit", goal.Unit)

	msg := fmt.Sprintf("Goal set: %s", describeGoal(sc.Goal))
	if sc.ConsumeFlag(models.FlagAwaitingConfirmation) {
		msg = "Got it. " + msg
	}
	if previous != nil && previous.Type != goal.Type {
		msg += fmt.Sprintf(" This replaces your previous %s goal; your workout plan was cleared, ask me for a new one.", strings.ReplaceAll(string(previous.Type), "_", " "))
	}
	return &Result{Message: msg, Hint: models.DisplayStructured, Goal: sc.Goal}, nil
}

// describeGoal renders a goal for user-facing confirmations.
func describeGoal(g *models.Goal) string {
	if g == nil {
		return "none"
	}
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(string(g.Type), "_", " "))
	if g.TargetDelta != 0 {
		delta := g.TargetDelta
		if delta < 0 {
			delta = -delta
		}
		fmt.Fprintf(&b, ", %d %s", delta, g.Unit)
	}
	if g.Duration != nil {
		fmt.Fprintf(&b, " in %d %s", g.Duration.Amount, g.Duration.Unit)
	}
	b.WriteString(".")
	return b.String()
}

// GetToolDefinition returns the OpenAI tool definition for goal analysis.
func (ga *GoalAnalyzer) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        models.HandlerGoalAnalyzer,
			Description: openai.String("Set or update the user's structured fitness goal (type, signed target delta, unit, duration)"),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"type": map[string]interface{}{
						"type": "string",
						"enum": []string{"lose_weight", "gain_weight", "build_muscle", "general_fitness"},
					},
					"target_delta": map[string]interface{}{
						"type":        "integer",
						"description": "Signed weight change target; negative to lose",
					},
					"unit": map[string]interface{}{
						"type": "string",
						"enum": []string{"kg", "lb"},
					},
					"duration_amount": map[string]interface{}{"type": "integer"},
					"duration_unit": map[string]interface{}{
						"type": "string",
						"enum": []string{"weeks", "months"},
					},
				},
				"required": []string{"type"},
			},
		},
	}
}
