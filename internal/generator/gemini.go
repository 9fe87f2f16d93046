package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/parley-chat/parley/internal/observability"
	"github.com/parley-chat/parley/pkg/session"
	"github.com/parley-chat/parley/pkg/stream"
)

// GeminiGenerator streams completions from the Gemini API. Thought
// parts map to the thinking channel, text parts to the answer channel.
// It is Cancellable.
type GeminiGenerator struct {
	canceler
	client *genai.Client
}

// NewGeminiGenerator creates a generator for the Gemini API.
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

// NewGeminiGeneratorFromClient creates a generator around an existing
// client. Used by tests.
func NewGeminiGeneratorFromClient(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

// Name returns the provider name.
func (g *GeminiGenerator) Name() string {
	return "gemini"
}

// Generate starts a streaming generation with thought parts included.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (<-chan stream.Event, error) {
	config := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{IncludeThoughts: true},
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, msg := range req.History {
		contents = append(contents, &genai.Content{
			Role:  geminiRole(msg.Role),
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: req.Input}},
	})

	ctx, cancel := g.track(ctx)

	sctx, span := observability.StartSpan(ctx, "generate", map[string]any{
		"provider":   g.Name(),
		"model":      req.Model,
		"request_id": req.ID.String(),
	})

	events := make(chan stream.Event)
	go func() {
		defer cancel()
		g.pump(sctx, span, req.Model, contents, config, events)
	}()
	return events, nil
}

func (g *GeminiGenerator) pump(ctx context.Context, span *observability.Span, model string, contents []*genai.Content, config *genai.GenerateContentConfig, events chan<- stream.Event) {
	defer close(events)
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

	for resp, err := range g.client.Models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			finish("error", err)
			events <- stream.Fail(fmt.Errorf("generation stream failed: %w", err))
			return
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			if part.Thought {
				reasoning.WriteString(part.Text)
				observability.RecordStreamChunk(g.Name(), "thinking")
				select {
				case events <- stream.Thinking(part.Text):
				case <-ctx.Done():
					finish("canceled", ctx.Err())
					events <- stream.Fail(ctx.Err())
					return
				}
			} else {
				answer.WriteString(part.Text)
				observability.RecordStreamChunk(g.Name(), "answer")
				select {
				case events <- stream.Chunk(part.Text):
				case <-ctx.Done():
					finish("canceled", ctx.Err())
					events <- stream.Fail(ctx.Err())
					return
				}
			}
		}
	}

	if answer.Len() == 0 && reasoning.Len() == 0 {
		finish("empty", ErrEmptyResponse)
		events <- stream.Fail(ErrEmptyResponse)
		return
	}
	finish("ok", nil)
	events <- stream.Complete(answer.String())
}

func geminiRole(role session.Role) string {
	if role == session.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}
