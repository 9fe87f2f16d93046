package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/parley-chat/parley/internal/observability"
	"github.com/parley-chat/parley/pkg/session"
	"github.com/parley-chat/parley/pkg/stream"
)

// ErrEmptyResponse reports a stream that completed without producing
// any text on either channel.
var ErrEmptyResponse = errors.New("model returned an empty response")

// OpenAIGenerator streams completions from the OpenAI chat API or any
// compatible endpoint. It is Cancellable.
type OpenAIGenerator struct {
	canceler
	client *openai.Client
}

// NewOpenAIGenerator creates a generator for the OpenAI API. An empty
// baseURL uses the default endpoint.
func NewOpenAIGenerator(apiKey, baseURL string) *OpenAIGenerator {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIGenerator{client: openai.NewClientWithConfig(config)}
}

// NewOpenAIGeneratorFromClient creates a generator around an existing
// client. Used by tests.
func NewOpenAIGeneratorFromClient(client *openai.Client) *OpenAIGenerator {
	return &OpenAIGenerator{client: client}
}

// Name returns the provider name.
func (g *OpenAIGenerator) Name() string {
	return "openai"
}

// Generate starts a streaming completion. Reasoning deltas map to the
// thinking channel, content deltas to the answer channel.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (<-chan stream.Event, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, msg := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openaiRole(msg.Role),
			Content: msg.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Input,
	})

	ctx, cancel := g.track(ctx)

	sctx, span := observability.StartSpan(ctx, "generate", map[string]any{
		"provider":   g.Name(),
		"model":      req.Model,
		"request_id": req.ID.String(),
	})

	apiStream, err := g.client.CreateChatCompletionStream(sctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		span.SetError(err)
		span.End()
		cancel()
		return nil, fmt.Errorf("failed to start completion stream: %w", err)
	}

	events := make(chan stream.Event)
	go func() {
		defer cancel()
		g.pump(sctx, span, apiStream, events)
	}()
	return events, nil
}

func (g *OpenAIGenerator) pump(ctx context.Context, span *observability.Span, apiStream *openai.ChatCompletionStream, events chan<- stream.Event) {
	defer close(events)
	defer apiStream.Close()
	defer span.End()

	start := time.Now()
	var answer, reasoning strings.Builder

	finish := func(status string, err error) {
		observability.RecordGeneration(g.Name(), status, time.Since(start))
		if err != nil {
			span.SetError(err)
		}
		span.SetAttribute("answer_chars", int64(answer.Len()))
		span.SetAttribute("reasoning_chars", int64(reasoning.Len()))
	}

	for {
		resp, err := apiStream.Recv()
		if errors.Is(err, io.EOF) {
			if answer.Len() == 0 && reasoning.Len() == 0 {
				finish("empty", ErrEmptyResponse)
				events <- stream.Fail(ErrEmptyResponse)
				return
			}
			finish("ok", nil)
			events <- stream.Complete(answer.String())
			return
		}
		if err != nil {
			finish("error", err)
			events <- stream.Fail(fmt.Errorf("completion stream failed: %w", err))
			return
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta
		if delta.ReasoningContent != "" {
			reasoning.WriteString(delta.ReasoningContent)
			observability.RecordStreamChunk(g.Name(), "thinking")
			select {
			case events <- stream.Thinking(delta.ReasoningContent):
			case <-ctx.Done():
				finish("canceled", ctx.Err())
				events <- stream.Fail(ctx.Err())
				return
			}
		}
		if delta.Content != "" {
			answer.WriteString(delta.Content)
			observability.RecordStreamChunk(g.Name(), "answer")
			select {
			case events <- stream.Chunk(delta.Content):
			case <-ctx.Done():
				finish("canceled", ctx.Err())
				events <- stream.Fail(ctx.Err())
				return
			}
		}
	}
}

func openaiRole(role session.Role) string {
	if role == session.RoleAssistant {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}
