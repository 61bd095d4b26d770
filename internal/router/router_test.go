package router

import (
	"context"
	"strings"
	"testing"

	"github.com/BTreeMap/WellnessPipe/internal/config"
	"github.com/BTreeMap/WellnessPipe/internal/genai"
	"github.com/BTreeMap/WellnessPipe/internal/handlers"
	"github.com/BTreeMap/WellnessPipe/internal/hooks"
	"github.com/BTreeMap/WellnessPipe/internal/models"
	"github.com/BTreeMap/WellnessPipe/internal/specialist"
	"github.com/openai/openai-go"
)

func newTestRouter() *Router {
	return newTestRouterWithGen(nil)
}

func newTestRouterWithGen(gen genai.ClientInterface) *Router {
	cfg := config.Default()
	return New(cfg, handlers.NewRegistry(nil), specialist.NewRegistry(), hooks.NewRegistry(), gen)
}

// fakeGen is a canned generation engine.
type fakeGen struct {
	content   string
	toolCalls []genai.ToolCall
	fragments []string
	err       error
	toolCount int
}

func (f *fakeGen) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	return f.content, f.err
}

func (f *fakeGen) GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*genai.ToolCallResponse, error) {
	f.toolCount = len(tools)
	if f.err != nil {
		return nil, f.err
	}
	return &genai.ToolCallResponse{Content: f.content, ToolCalls: f.toolCalls}, nil
}

func (f *fakeGen) GenerateStream(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, onFragment func(string)) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	var b strings.Builder
	for _, fragment := range f.fragments {
		onFragment(fragment)
		b.WriteString(fragment)
	}
	return b.String(), nil
}

func TestClassifyPriorityOrder(t *testing.T) {
	c := NewClassifier(config.DefaultRouting())
	cases := map[string]models.Category{
		"I want to lose 5kg in 2 months":   models.CategoryGoal,
		"can I get a vegetarian meal plan": models.CategoryMeal,
		"recommend a workout for me":       models.CategoryWorkout,
		"I completed my workout today":     models.CategoryProgress,
		"remind me to train every day":     models.CategorySchedule,
		"I have knee pain":                 models.CategoryInjury,
		"I'm diabetic, what should I eat":  models.CategoryNutritionRisk,
		"can I talk to a human":            models.CategoryEscalation,
		"what's the weather like":          models.CategoryNone,
	}
	for utterance, want := range cases {
		got, _ := c.Classify(utterance)
		if got != want {
			t.Errorf("%q: expected %s, got %s", utterance, want, got)
		}
	}
}

func TestClassifyPhraseKeywords(t *testing.T) {
	c := NewClassifier(config.DefaultRouting())
	got, tier := c.Classify("I want to build muscle")
	if got != models.CategoryGoal {
		t.Errorf("phrase keyword should match, got %s", got)
	}
	if tier != models.TierExact {
		t.Errorf("expected exact tier, got %s", tier)
	}
}

func TestRouteGoalThenMealThenWorkout(t *testing.T) {
	r := newTestRouter()
	sc := models.NewSessionContext("u1", 0)
	ctx := context.Background()

	reply := r.Route(ctx, "I want to lose 5kg in 2 months", sc)
	if reply.Decision.MatchedCategory != models.CategoryGoal {
		t.Fatalf("expected goal category, got %s", reply.Decision.MatchedCategory)
	}
	if sc.Goal == nil || sc.Goal.Type != models.GoalLoseWeight {
		t.Fatalf("expected stored goal, got %+v", sc.Goal)
	}

	reply = r.Route(ctx, "can I get a vegetarian meal plan", sc)
	if reply.Decision.MatchedCategory != models.CategoryMeal {
		t.Fatalf("expected meal category, got %s", reply.Decision.MatchedCategory)
	}
	if sc.MealPlan == nil || len(sc.MealPlan.Days) != models.MealPlanDays {
		t.Fatalf("expected a stored 7-day meal plan")
	}

	reply = r.Route(ctx, "now give me a workout", sc)
	if reply.Decision.MatchedCategory != models.CategoryWorkout {
		t.Fatalf("expected workout category, got %s", reply.Decision.MatchedCategory)
	}
	if sc.WorkoutPlan == nil {
		t.Fatal("expected a stored workout plan")
	}
}

func TestRouteMealWithoutGoalClarifies(t *testing.T) {
	r := newTestRouter()
	sc := models.NewSessionContext("u1", 0)

	reply := r.Route(context.Background(), "can I get a meal plan", sc)
	if sc.MealPlan != nil {
		t.Error("meal planner must not run without a goal")
	}
	if !strings.Contains(strings.ToLower(reply.Text), "goal") {
		t.Errorf("expected a clarifying reply about the goal, got %q", reply.Text)
	}
}

func TestRouteInjuryAdaptsWorkout(t *testing.T) {
	r := newTestRouter()
	sc := models.NewSessionContext("u1", 0)
	ctx := context.Background()

	r.Route(ctx, "I want to lose 5kg in 2 months", sc)
	reply := r.Route(ctx, "I have knee pain, can I still exercise?", sc)
	if reply.Decision.MatchedCategory != models.CategoryInjury {
		t.Fatalf("expected injury category, got %s", reply.Decision.MatchedCategory)
	}
	if len(sc.InjuryNotes) == 0 {
		t.Error("expected an injury note")
	}
	if sc.WorkoutPlan == nil {
		t.Fatal("expected an adapted workout plan")
	}
	banned := map[string]bool{}
	for _, ex := range sc.WorkoutPlan.Sessions[0].Exercises {
		banned[ex] = true
	}
	if banned["Running"] || banned["Squats"] || banned["Jump squats"] {
		t.Errorf("adapted plan still contains knee-loading exercises: %v", sc.WorkoutPlan.Sessions[0].Exercises)
	}
}

func TestRouteProgressBeatsWorkoutKeyword(t *testing.T) {
	r := newTestRouter()
	sc := models.NewSessionContext("u1", 0)

	reply := r.Route(context.Background(), "I completed my workout today", sc)
	if reply.Decision.MatchedCategory != models.CategoryProgress {
		t.Fatalf("progress must outrank workout, got %s", reply.Decision.MatchedCategory)
	}
	if len(sc.ProgressLogs) != 1 {
		t.Errorf("expected one progress entry, got %d", len(sc.ProgressLogs))
	}
}

func TestRouteEscalationSetsFlag(t *testing.T) {
	r := newTestRouter()
	sc := models.NewSessionContext("u1", 0)

	reply := r.Route(context.Background(), "can I talk to a human please", sc)
	if reply.Decision.MatchedCategory != models.CategoryEscalation {
		t.Fatalf("expected escalation, got %s", reply.Decision.MatchedCategory)
	}
	if !sc.HasFlag(models.FlagEscalated) {
		t.Error("escalation must set the flag")
	}
	if !strings.Contains(reply.Text, "HC-") {
		t.Errorf("expected a reference ID, got %q", reply.Text)
	}
}

func TestRouteRejectedInputGetsFixedMessage(t *testing.T) {
	r := newTestRouter()
	sc := models.NewSessionContext("u1", 0)

	reply := r.Route(context.Background(), "where can I buy steroids", sc)
	if reply.Text != msgRejectedInput {
		t.Errorf("expected the fixed rejection message, got %q", reply.Text)
	}
	if len(sc.ChatHistory) != 0 {
		t.Errorf("a rejected turn must not enter the history on either side, got %+v", sc.ChatHistory)
	}
}

func TestRouteNoneWithoutEngineClarifies(t *testing.T) {
	r := newTestRouter()
	sc := models.NewSessionContext("u1", 0)

	reply := r.Route(context.Background(), "what's the weather like", sc)
	if reply.Decision.MatchedCategory != models.CategoryNone {
		t.Fatalf("expected none category, got %s", reply.Decision.MatchedCategory)
	}
	if reply.Decision.Tier != models.TierFallback {
		t.Errorf("expected fallback tier, got %s", reply.Decision.Tier)
	}
	if reply.Text != msgClarify {
		t.Errorf("expected the canned clarifying reply, got %q", reply.Text)
	}
}

func TestRouteNoneContentReplyPassesThrough(t *testing.T) {
	gen := &fakeGen{content: "Hydration helps with everything, keep a bottle nearby."}
	r := newTestRouterWithGen(gen)
	sc := models.NewSessionContext("u1", 0)

	reply := r.Route(context.Background(), "what's the weather like", sc)
	if reply.Text != gen.content {
		t.Errorf("expected the generated reply, got %q", reply.Text)
	}
	if gen.toolCount != 5 {
		t.Errorf("expected all five tool schemas offered, got %d", gen.toolCount)
	}
}

func TestRouteNoneDispatchesRequestedTool(t *testing.T) {
	gen := &fakeGen{toolCalls: []genai.ToolCall{{ID: "call_1", Name: models.HandlerProgressTracker}}}
	r := newTestRouterWithGen(gen)
	sc := models.NewSessionContext("u1", 0)

	reply := r.Route(context.Background(), "what's the weather like", sc)
	if reply.Decision.TargetHandler != models.HandlerProgressTracker {
		t.Fatalf("expected the requested tool to run, got %q", reply.Decision.TargetHandler)
	}
	if len(sc.ProgressLogs) != 1 {
		t.Errorf("expected the tool to record a progress entry, got %d", len(sc.ProgressLogs))
	}
}

func TestRouteNoneRequestedToolHonorsPrecondition(t *testing.T) {
	gen := &fakeGen{toolCalls: []genai.ToolCall{{ID: "call_1", Name: models.HandlerMealPlanner}}}
	r := newTestRouterWithGen(gen)
	sc := models.NewSessionContext("u1", 0)

	reply := r.Route(context.Background(), "what's the weather like", sc)
	if sc.MealPlan != nil {
		t.Error("requested tool must not bypass the goal precondition")
	}
	if reply.Text != msgNeedGoal {
		t.Errorf("expected the goal prompt, got %q", reply.Text)
	}
}

func TestRouteNoneEngineFailureClarifies(t *testing.T) {
	gen := &fakeGen{err: models.ErrUpstreamTransport}
	r := newTestRouterWithGen(gen)
	sc := models.NewSessionContext("u1", 0)

	reply := r.Route(context.Background(), "what's the weather like", sc)
	if reply.Text != msgClarify {
		t.Errorf("expected the canned clarifying reply, got %q", reply.Text)
	}
}

func TestRouteStreamForwardsFragments(t *testing.T) {
	gen := &fakeGen{fragments: []string{"Stay ", "hydrated", " today."}}
	r := newTestRouterWithGen(gen)
	sc := models.NewSessionContext("u1", 0)

	var got strings.Builder
	reply := r.RouteStream(context.Background(), "what's the weather like", sc, func(fragment string) {
		got.WriteString(fragment)
	})
	if got.String() != "Stay hydrated today." {
		t.Errorf("unexpected streamed text: %q", got.String())
	}
	if reply.Text != got.String() {
		t.Errorf("returned reply must match the streamed text, got %q", reply.Text)
	}
	last := sc.ChatHistory[len(sc.ChatHistory)-1]
	if last.Role != "assistant" || last.Text != reply.Text {
		t.Errorf("streamed reply must still enter the history, got %+v", last)
	}
}

func TestRouteStreamHandlerReplyNotStreamed(t *testing.T) {
	gen := &fakeGen{fragments: []string{"never"}}
	r := newTestRouterWithGen(gen)
	sc := models.NewSessionContext("u1", 0)

	emitted := false
	reply := r.RouteStream(context.Background(), "I want to lose 5kg in 2 months", sc, func(string) {
		emitted = true
	})
	if emitted {
		t.Error("handler replies must not stream through the engine")
	}
	if !strings.Contains(reply.Text, "Goal set") {
		t.Errorf("expected the handler reply, got %q", reply.Text)
	}
}

func TestSpecialistRevisitFailsClosedToEscalation(t *testing.T) {
	r := newTestRouter()
	sc := models.NewSessionContext("u1", 0)
	snap := hooks.NewSnapshot(sc, "my knee hurts")

	visited := map[string]bool{models.SpecialistInjurySupport: true}
	reply, degraded := r.runSpecialist(context.Background(), models.SpecialistInjurySupport, "my knee hurts", sc, visited, &snap)
	if degraded {
		t.Error("fail-closed escalation is a handled path, not a degraded turn")
	}
	if !sc.HasFlag(models.FlagEscalated) {
		t.Error("revisit must fail closed to escalation")
	}
	if !strings.Contains(reply.Text, "HC-") {
		t.Errorf("expected an escalation reply, got %q", reply.Text)
	}
}

func TestSpecialistRevisitWithEscalationVisitedDegrades(t *testing.T) {
	r := newTestRouter()
	sc := models.NewSessionContext("u1", 0)
	snap := hooks.NewSnapshot(sc, "my knee hurts")

	visited := map[string]bool{
		models.SpecialistInjurySupport: true,
		models.SpecialistEscalation:    true,
	}
	reply, degraded := r.runSpecialist(context.Background(), models.SpecialistInjurySupport, "my knee hurts", sc, visited, &snap)
	if !degraded {
		t.Error("exhausted visited set must degrade")
	}
	if reply.Text != msgDegraded {
		t.Errorf("expected the degraded message, got %q", reply.Text)
	}
}

type panickingHandler struct{}

func (panickingHandler) Name() string { return "panicking" }
func (panickingHandler) Execute(ctx context.Context, utterance string, sc *models.SessionContext) (*handlers.Result, error) {
	panic("handler bug")
}

func TestSafeExecuteContainsPanic(t *testing.T) {
	r := newTestRouter()
	sc := models.NewSessionContext("u1", 0)

	_, err := r.safeExecute(context.Background(), panickingHandler{}, "hi", sc)
	if err == nil {
		t.Fatal("expected a contained panic error")
	}
}

func TestRouteHistoryGetsBothTurns(t *testing.T) {
	r := newTestRouter()
	sc := models.NewSessionContext("u1", 0)

	r.Route(context.Background(), "I want to build muscle", sc)
	if len(sc.ChatHistory) != 2 {
		t.Fatalf("expected user+assistant history entries, got %d", len(sc.ChatHistory))
	}
	if sc.ChatHistory[0].Role != "user" || sc.ChatHistory[1].Role != "assistant" {
		t.Errorf("unexpected roles: %s, %s", sc.ChatHistory[0].Role, sc.ChatHistory[1].Role)
	}
}
