// Package router implements the routing core: one utterance in, one
// validated reply out.
//
// The pipeline is fixed: input hook, input guardrail, classification,
// dispatch (direct reply, domain handler, or specialist handoff), output
// guardrail, output hooks. Every failure mode is converted to a degraded
// user-visible reply at this boundary; no error propagates past Route.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/WellnessPipe/internal/config"
	"github.com/BTreeMap/WellnessPipe/internal/genai"
	"github.com/BTreeMap/WellnessPipe/internal/guardrails"
	"github.com/BTreeMap/WellnessPipe/internal/handlers"
	"github.com/BTreeMap/WellnessPipe/internal/hooks"
	"github.com/BTreeMap/WellnessPipe/internal/models"
	"github.com/BTreeMap/WellnessPipe/internal/specialist"
	"github.com/openai/openai-go"
)

// Fixed fallback messages. Guardrail rejections and internal failures never
// leak their cause to the user.
const (
	msgRejectedInput = "I can't help with that request. I'm here for healthy, sustainable fitness: goals, meal plans, workouts, progress, and reminders."
	msgDegraded      = "Something went wrong on my side while handling that. Please try again in a moment."
	msgNeedGoal      = "Before I can build that, tell me your fitness goal. For example: \"I want to lose 5kg in 2 months\" or \"I want to build muscle\"."
	msgClarify       = "I'm not sure what you're after. You can set a goal, ask for a meal plan or workout, log progress, or schedule check-in reminders."
)

// generalSystemPrompt frames the generation engine for the none-category
// fallback path.
const generalSystemPrompt = "You are a friendly health and wellness assistant. " +
	"Answer briefly and encourage healthy, sustainable habits. " +
	"If the user seems to want a meal plan, workout, goal, progress tracking, or reminders, " +
	"suggest they ask for it directly."

// categoryHandlers maps the direct-dispatch categories to their handler.
var categoryHandlers = map[models.Category]string{
	models.CategoryGoal:     models.HandlerGoalAnalyzer,
	models.CategoryMeal:     models.HandlerMealPlanner,
	models.CategoryWorkout:  models.HandlerWorkoutRecommender,
	models.CategoryProgress: models.HandlerProgressTracker,
	models.CategorySchedule: models.HandlerCheckinScheduler,
}

// categorySpecialists maps the specialist categories to their agent.
var categorySpecialists = map[models.Category]string{
	models.CategoryEscalation:    models.SpecialistEscalation,
	models.CategoryNutritionRisk: models.SpecialistNutritionExpert,
	models.CategoryInjury:        models.SpecialistInjurySupport,
}

// goalRequired lists the handlers the router refuses to invoke without a
// goal. The refusal is a normal clarifying reply, not an error.
var goalRequired = map[string]bool{
	models.HandlerMealPlanner:        true,
	models.HandlerWorkoutRecommender: true,
}

// Router is the orchestrator for one session's turns.
type Router struct {
	classifier  *Classifier
	input       *guardrails.Input
	output      *guardrails.Output
	handlers    *handlers.Registry
	specialists *specialist.Registry
	hooks       *hooks.Registry
	gen         genai.ClientInterface
	tools       []openai.ChatCompletionToolParam
	timeout     time.Duration
}

// New wires a router. gen may be nil; the none-category path then degrades
// to the canned clarifying reply.
func New(cfg *config.Config, reg *handlers.Registry, specialists *specialist.Registry, hookReg *hooks.Registry, gen genai.ClientInterface) *Router {
	return &Router{
		classifier:  NewClassifier(cfg.Routing),
		input:       guardrails.NewInput(cfg.MaxUtteranceLength, cfg.DenyList),
		output:      guardrails.NewOutput(),
		handlers:    reg,
		specialists: specialists,
		hooks:       hookReg,
		gen:         gen,
		tools:       reg.ToolDefinitions(),
		timeout:     cfg.UpstreamTimeout,
	}
}

// Route processes one utterance against the session and returns the
// validated reply. The caller (session manager) guarantees strict
// one-utterance-at-a-time ordering per session.
func (r *Router) Route(ctx context.Context, utterance string, sc *models.SessionContext) *models.Reply {
	return r.route(ctx, utterance, sc, nil)
}

// RouteStream is Route with incremental delivery: fragments of a generated
// reply are forwarded to emit as they arrive. Handler and specialist replies
// are not streamed; the returned reply is authoritative either way.
func (r *Router) RouteStream(ctx context.Context, utterance string, sc *models.SessionContext, emit func(string)) *models.Reply {
	return r.route(ctx, utterance, sc, emit)
}

func (r *Router) route(ctx context.Context, utterance string, sc *models.SessionContext, emit func(string)) *models.Reply {
	snap := hooks.NewSnapshot(sc, utterance)
	r.hooks.Fire(ctx, hooks.BeforeClassification, snap)

	check := r.input.Check(utterance)
	if !check.Accepted {
		slog.Info("input rejected", "user_id", sc.UserID, "reason", check.Reason, "error", models.ErrInputRejected)
		return r.finish(ctx, sc, snap, models.Reply{
			Text: msgRejectedInput,
			Hint: models.DisplayPlain,
			Decision: models.RoutingDecision{
				MatchedCategory: models.CategoryNone,
				Tier:            models.TierFallback,
			},
		}, true, false)
	}
	sanitized := check.Sanitized
	sc.AppendChat("user", sanitized)

	category, tier := r.classifier.Classify(sanitized)
	snap.Category = category
	snap.Tier = tier
	slog.Debug("utterance classified", "user_id", sc.UserID, "category", category, "tier", tier)

	var reply models.Reply
	var degraded bool
	switch {
	case category == models.CategoryNone:
		reply, degraded = r.routeGeneral(ctx, sanitized, sc, &snap, emit)
	case models.SpecialistCategories[category]:
		reply, degraded = r.routeSpecialist(ctx, category, sanitized, sc, &snap)
	default:
		reply, degraded = r.routeHandler(ctx, category, sanitized, sc, &snap)
	}
	reply.Decision.MatchedCategory = category
	reply.Decision.Tier = tier
	return r.finish(ctx, sc, snap, reply, degraded, true)
}

// finish runs the output guardrail on the reply text, fires the output
// hooks, and appends the assistant turn to the history. A rejected input
// turn is recorded on neither side (record false): the refusal is delivered
// but the exchange never enters the history.
func (r *Router) finish(ctx context.Context, sc *models.SessionContext, snap hooks.Snapshot, reply models.Reply, degraded, record bool) *models.Reply {
	if check := r.output.CheckReplyText(reply.Text); !check.Accepted {
		slog.Error("output rejected", "user_id", sc.UserID, "reason", check.Reason)
		reply.Text = msgDegraded
		reply.Hint = models.DisplayPlain
		degraded = true
	}
	snap.ReplyText = reply.Text
	snap.Degraded = degraded
	r.hooks.Fire(ctx, hooks.BeforeOutput, snap)
	if record {
		sc.AppendChat("assistant", reply.Text)
	}
	r.hooks.Fire(ctx, hooks.AfterOutput, snap)
	return &reply
}

// routeHandler dispatches a domain category to its handler with precondition
// checks and panic containment.
func (r *Router) routeHandler(ctx context.Context, category models.Category, utterance string, sc *models.SessionContext, snap *hooks.Snapshot) (models.Reply, bool) {
	name := categoryHandlers[category]
	snap.Handler = name
	if goalRequired[name] && sc.Goal == nil {
		return models.Reply{
			Text:     msgNeedGoal,
			Hint:     models.DisplayPlain,
			Decision: models.RoutingDecision{TargetHandler: name},
		}, false
	}

	h, ok := r.handlers.Get(name)
	if !ok {
		slog.Error("routing table names unknown handler", "category", category, "handler", name)
		return models.Reply{Text: msgDegraded, Hint: models.DisplayPlain}, true
	}

	result, err := r.safeExecute(ctx, h, utterance, sc)
	if err != nil {
		slog.Error("handler failed", "user_id", sc.UserID, "handler", name, "error", err)
		return models.Reply{
			Text:     msgDegraded,
			Hint:     models.DisplayPlain,
			Decision: models.RoutingDecision{TargetHandler: name},
		}, true
	}
	r.hooks.Fire(ctx, hooks.AfterHandler, *snap)

	if !r.checkStructured(result) {
		slog.Error("handler output rejected", "user_id", sc.UserID, "handler", name, "error", models.ErrOutputShapeInvalid)
		return models.Reply{
			Text:     msgDegraded,
			Hint:     models.DisplayPlain,
			Decision: models.RoutingDecision{TargetHandler: name},
		}, true
	}
	return models.Reply{
		Text:     result.Message,
		Hint:     result.Hint,
		Decision: models.RoutingDecision{TargetHandler: name},
	}, false
}

// routeSpecialist drives the assess/compose protocol. The visited set spans
// one routing pass; a handoff that would revisit a specialist fails closed
// to escalation.
func (r *Router) routeSpecialist(ctx context.Context, category models.Category, utterance string, sc *models.SessionContext, snap *hooks.Snapshot) (models.Reply, bool) {
	visited := make(map[string]bool)
	return r.runSpecialist(ctx, categorySpecialists[category], utterance, sc, visited, snap)
}

func (r *Router) runSpecialist(ctx context.Context, name, utterance string, sc *models.SessionContext, visited map[string]bool, snap *hooks.Snapshot) (models.Reply, bool) {
	if visited[name] {
		slog.Warn("specialist revisit blocked", "user_id", sc.UserID, "specialist", name, "error", models.ErrSpecialistRevisit)
		if name != models.SpecialistEscalation && !visited[models.SpecialistEscalation] {
			return r.runSpecialist(ctx, models.SpecialistEscalation, utterance, sc, visited, snap)
		}
		return models.Reply{Text: msgDegraded, Hint: models.DisplayPlain}, true
	}
	visited[name] = true
	snap.Specialist = name

	s, ok := r.specialists.Get(name)
	if !ok {
		slog.Error("unknown specialist", "specialist", name)
		return models.Reply{Text: msgDegraded, Hint: models.DisplayPlain}, true
	}

	a, err := r.safeAssess(ctx, s, utterance, sc)
	if err != nil {
		slog.Error("specialist failed", "user_id", sc.UserID, "specialist", name, "error", err)
		return models.Reply{Text: msgDegraded, Hint: models.DisplayPlain}, true
	}
	if a.Request == nil {
		return models.Reply{Text: a.Reply, Hint: a.Hint}, false
	}

	snap.Handler = a.Request.Handler
	result, err := r.executeRequest(ctx, a.Request, utterance, sc)
	if err != nil || !r.checkStructured(result) {
		if err != nil {
			slog.Error("specialist handler request failed", "user_id", sc.UserID, "specialist", name, "handler", a.Request.Handler, "error", err)
		}
		text, hint := s.Compose(ctx, a, nil)
		return models.Reply{Text: text, Hint: hint}, true
	}
	r.hooks.Fire(ctx, hooks.AfterHandler, *snap)
	text, hint := s.Compose(ctx, a, result)
	return models.Reply{Text: text, Hint: hint}, false
}

// executeRequest runs a specialist's nested handler request with its
// explicit parameters.
func (r *Router) executeRequest(ctx context.Context, req *models.HandlerRequest, utterance string, sc *models.SessionContext) (result *handlers.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("%w: panic: %v", models.ErrHandlerFailure, rec)
		}
	}()
	switch req.Handler {
	case models.HandlerMealPlanner:
		params, _ := req.Params.(models.MealPlanParams)
		return r.handlers.Meal.ExecuteWithParams(ctx, params, sc)
	case models.HandlerWorkoutRecommender:
		params, _ := req.Params.(models.WorkoutParams)
		return r.handlers.Workout.ExecuteWithParams(ctx, params, sc)
	default:
		h, ok := r.handlers.Get(req.Handler)
		if !ok {
			return nil, fmt.Errorf("%w: %s", models.ErrUnknownHandler, req.Handler)
		}
		return h.Execute(ctx, utterance, sc)
	}
}

// safeExecute contains handler panics, converting them to handler failures.
func (r *Router) safeExecute(ctx context.Context, h handlers.Handler, utterance string, sc *models.SessionContext) (result *handlers.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("%w: panic: %v", models.ErrHandlerFailure, rec)
		}
	}()
	return h.Execute(ctx, utterance, sc)
}

// safeAssess contains specialist panics.
func (r *Router) safeAssess(ctx context.Context, s specialist.Specialist, utterance string, sc *models.SessionContext) (a *specialist.Assessment, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			a = nil
			err = fmt.Errorf("%w: panic: %v", models.ErrHandlerFailure, rec)
		}
	}()
	return s.Assess(ctx, utterance, sc)
}

// checkStructured runs the output guardrail over a handler result's
// structured payloads.
func (r *Router) checkStructured(result *handlers.Result) bool {
	if result == nil {
		return false
	}
	if result.MealPlan != nil {
		if check := r.output.CheckMealPlan(result.MealPlan); !check.Accepted {
			slog.Error("meal plan rejected", "reason", check.Reason)
			return false
		}
	}
	if result.WorkoutPlan != nil {
		if check := r.output.CheckWorkoutPlan(result.WorkoutPlan); !check.Accepted {
			slog.Error("workout plan rejected", "reason", check.Reason)
			return false
		}
	}
	return true
}

// routeGeneral sends a none-category utterance to the generation engine,
// bounded by the configured timeout. Tool calls requested by the model are
// dispatched through the domain handlers; with emit set the reply streams
// instead (no tools on the streaming path). Any failure degrades to the
// canned clarifying reply.
func (r *Router) routeGeneral(ctx context.Context, utterance string, sc *models.SessionContext, snap *hooks.Snapshot, emit func(string)) (models.Reply, bool) {
	if r.gen == nil {
		return models.Reply{Text: msgClarify, Hint: models.DisplayPlain}, false
	}
	genCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(generalSystemPrompt)}
	for _, msg := range recentHistory(sc, 10) {
		if msg.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(msg.Text))
		} else {
			messages = append(messages, openai.UserMessage(msg.Text))
		}
	}

	if emit != nil {
		text, err := r.gen.GenerateStream(genCtx, messages, emit)
		if err != nil {
			logGenFailure(sc, err)
			return models.Reply{Text: msgClarify, Hint: models.DisplayPlain}, true
		}
		return models.Reply{Text: text, Hint: models.DisplayPlain}, false
	}

	resp, err := r.gen.GenerateWithTools(genCtx, messages, r.tools)
	if err != nil {
		logGenFailure(sc, err)
		return models.Reply{Text: msgClarify, Hint: models.DisplayPlain}, true
	}
	if len(resp.ToolCalls) > 0 {
		return r.routeToolCall(ctx, resp.ToolCalls[0], utterance, sc, snap)
	}
	if resp.Content == "" {
		return models.Reply{Text: msgClarify, Hint: models.DisplayPlain}, true
	}
	return models.Reply{Text: resp.Content, Hint: models.DisplayPlain}, false
}

// routeToolCall dispatches a model-requested tool call through the same
// precondition, containment, and output checks as direct dispatch.
func (r *Router) routeToolCall(ctx context.Context, call genai.ToolCall, utterance string, sc *models.SessionContext, snap *hooks.Snapshot) (models.Reply, bool) {
	snap.Handler = call.Name
	slog.Debug("generation engine requested tool", "user_id", sc.UserID, "tool", call.Name)

	if goalRequired[call.Name] && sc.Goal == nil {
		return models.Reply{
			Text:     msgNeedGoal,
			Hint:     models.DisplayPlain,
			Decision: models.RoutingDecision{TargetHandler: call.Name},
		}, false
	}
	h, ok := r.handlers.Get(call.Name)
	if !ok {
		slog.Warn("generation engine requested unknown tool", "tool", call.Name, "error", models.ErrUnknownHandler)
		return models.Reply{Text: msgClarify, Hint: models.DisplayPlain}, true
	}

	result, err := r.safeExecute(ctx, h, utterance, sc)
	if err != nil || !r.checkStructured(result) {
		if err != nil {
			slog.Error("tool call failed", "user_id", sc.UserID, "tool", call.Name, "error", err)
		}
		return models.Reply{
			Text:     msgDegraded,
			Hint:     models.DisplayPlain,
			Decision: models.RoutingDecision{TargetHandler: call.Name},
		}, true
	}
	r.hooks.Fire(ctx, hooks.AfterHandler, *snap)
	return models.Reply{
		Text:     result.Message,
		Hint:     result.Hint,
		Decision: models.RoutingDecision{TargetHandler: call.Name},
	}, false
}

// logGenFailure logs a generation-engine failure at the right level.
func logGenFailure(sc *models.SessionContext, err error) {
	if errors.Is(err, models.ErrUpstreamTimeout) || errors.Is(err, models.ErrUpstreamTransport) {
		slog.Warn("generation engine unavailable", "user_id", sc.UserID, "error", err)
	} else {
		slog.Error("generation engine failed", "user_id", sc.UserID, "error", err)
	}
}

// recentHistory returns the last n chat messages, the current utterance
// included since it was already appended.
func recentHistory(sc *models.SessionContext, n int) []models.ChatMessage {
	if len(sc.ChatHistory) <= n {
		return sc.ChatHistory
	}
	return sc.ChatHistory[len(sc.ChatHistory)-n:]
}
