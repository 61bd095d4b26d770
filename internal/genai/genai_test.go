package genai

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/BTreeMap/WellnessPipe/internal/models"
	"github.com/openai/openai-go"
)

type fakeCompletions struct {
	calls     int
	failures  []error
	responses []*openai.ChatCompletion
}

func (f *fakeCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	i := f.calls
	f.calls++
	if i < len(f.failures) && f.failures[i] != nil {
		return nil, f.failures[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return &openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}}}, nil
}

func TestClassifyErrorTimeout(t *testing.T) {
	err := classifyError(context.DeadlineExceeded)
	if !errors.Is(err, models.ErrUpstreamTimeout) {
		t.Errorf("deadline exceeded should classify as timeout, got %v", err)
	}
}

func TestClassifyErrorTransport(t *testing.T) {
	err := classifyError(&net.OpError{Op: "dial", Err: errors.New("connection refused")})
	if !errors.Is(err, models.ErrUpstreamTransport) {
		t.Errorf("dial failure should classify as transport error, got %v", err)
	}
}

func TestClassifyErrorContentNotRetryable(t *testing.T) {
	apierr := &openai.Error{StatusCode: 400}
	if isRetryable(classifyError(apierr)) {
		t.Error("4xx content failures must not be retried")
	}
	server := &openai.Error{StatusCode: 503}
	if !isRetryable(classifyError(server)) {
		t.Error("5xx failures should be retryable")
	}
}

func TestCompleteRetriesTransportOnce(t *testing.T) {
	fake := &fakeCompletions{failures: []error{&net.OpError{Op: "dial", Err: errors.New("refused")}}}
	c := &Client{completions: fake, model: openai.ChatModelGPT4oMini}

	out, err := c.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Errorf("unexpected content: %q", out)
	}
	if fake.calls != 2 {
		t.Errorf("expected exactly one retry (2 calls), got %d", fake.calls)
	}
}

func TestCompleteDoesNotRetryTimeout(t *testing.T) {
	fake := &fakeCompletions{failures: []error{context.DeadlineExceeded, context.DeadlineExceeded}}
	c := &Client{completions: fake, model: openai.ChatModelGPT4oMini}

	_, err := c.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")})
	if !errors.Is(err, models.ErrUpstreamTimeout) {
		t.Fatalf("expected timeout classification, got %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("timeouts must not be retried, got %d calls", fake.calls)
	}
}

func TestGenerateWithToolsSurfacesToolCalls(t *testing.T) {
	fake := &fakeCompletions{responses: []*openai.ChatCompletion{{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCall{{
					ID: "call_1",
					Function: openai.ChatCompletionMessageToolCallFunction{
						Name:      "meal_planner",
						Arguments: `{"filters":["vegan"]}`,
					},
				}},
			},
		}},
	}}}
	c := &Client{completions: fake, model: openai.ChatModelGPT4oMini}

	resp, err := c.GenerateWithTools(context.Background(),
		[]openai.ChatCompletionMessageParamUnion{openai.UserMessage("vegan meals")}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %d", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].Name != "meal_planner" || resp.ToolCalls[0].ID != "call_1" {
		t.Errorf("unexpected tool call: %+v", resp.ToolCalls[0])
	}
}

func TestCompleteRetryIsBounded(t *testing.T) {
	transport := &net.OpError{Op: "dial", Err: errors.New("refused")}
	fake := &fakeCompletions{failures: []error{transport, transport, transport}}
	c := &Client{completions: fake, model: openai.ChatModelGPT4oMini}

	_, err := c.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")})
	if !errors.Is(err, models.ErrUpstreamTransport) {
		t.Fatalf("expected transport classification, got %v", err)
	}
	if fake.calls != 2 {
		t.Errorf("expected at most one retry (2 calls), got %d", fake.calls)
	}
}
