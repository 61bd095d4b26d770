// Package genai wraps the OpenAI API as the generation-engine collaborator.
//
// The core submits role-tagged message sequences (plus optional tool
// schemas) and receives plain text or structured tool-call results. Calls
// are bounded by the caller's context; transient transport failures are
// retried at most once with backoff, content failures never.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/WellnessPipe/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// retryBackoff is the delay before the single transport retry.
const retryBackoff = 500 * time.Millisecond

// ToolCall is one structured function call requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON arguments
}

// ToolCallResponse carries either plain content, tool calls, or both.
type ToolCallResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// ClientInterface defines the generation operations the router and
// specialists depend on.
type ClientInterface interface {
	// GenerateWithMessages produces a plain-text completion.
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)

	// GenerateWithTools produces a completion that may request tool calls.
	GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*ToolCallResponse, error)

	// GenerateStream produces a completion incrementally, forwarding each
	// text fragment to onFragment, and returns the full buffered text.
	GenerateStream(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, onFragment func(string)) (string, error)
}

// completionService is the minimal surface of the OpenAI chat API used here,
// separated so tests can substitute a fake.
type completionService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type openaiCompletions struct {
	client openai.Client
}

func (s openaiCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return s.client.Chat.Completions.New(ctx, params)
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	client      openai.Client
	completions completionService
	model       openai.ChatModel
}

// NewClient initializes a GenAI client with the given API key.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		client:      cli,
		completions: openaiCompletions{client: cli},
		model:       openai.ChatModelGPT4oMini,
	}, nil
}

// classifyError maps an upstream failure onto the error kinds the router
// understands. Timeouts and cancellations become ErrUpstreamTimeout; 429 and
// 5xx responses plus connection-level failures become ErrUpstreamTransport.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", models.ErrUpstreamTimeout, err)
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == 429 || apierr.StatusCode >= 500 {
			return fmt.Errorf("%w: status %d", models.ErrUpstreamTransport, apierr.StatusCode)
		}
		// 4xx content/auth failures are not transient; surface as-is.
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrUpstreamTransport, err)
}

// isRetryable reports whether a classified error qualifies for the single
// transport retry. Timeouts are not retried: the turn budget is spent.
func isRetryable(err error) bool {
	return errors.Is(err, models.ErrUpstreamTransport)
}

// complete runs one completion with the bounded retry policy.
func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	resp, err := c.completions.New(ctx, params)
	if err == nil {
		return resp, nil
	}
	classified := classifyError(err)
	if !isRetryable(classified) {
		return nil, classified
	}
	slog.Warn("genai transport failure, retrying once", "error", err)
	select {
	case <-ctx.Done():
		return nil, classifyError(ctx.Err())
	case <-time.After(retryBackoff):
	}
	resp, err = c.completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	return resp, nil
}

// GenerateWithMessages produces a plain-text completion.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := c.complete(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateWithTools produces a completion that may request tool calls.
func (c *Client) GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*ToolCallResponse, error) {
	resp, err := c.complete(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}
	msg := resp.Choices[0].Message
	result := &ToolCallResponse{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	slog.Debug("genai tool completion", "tool_calls", len(result.ToolCalls), "has_content", result.Content != "")
	return result, nil
}

// GenerateStream produces a completion incrementally. The core only buffers
// and forwards fragments; it does not generate them. Streaming is not
// retried: a failure mid-stream degrades the turn.
func (c *Client) GenerateStream(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, onFragment func(string)) (string, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 {
			if fragment := chunk.Choices[0].Delta.Content; fragment != "" && onFragment != nil {
				onFragment(fragment)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", classifyError(err)
	}
	if len(acc.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return acc.Choices[0].Message.Content, nil
}
