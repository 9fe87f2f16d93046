// Package generator adapts model-provider streaming APIs to the
// two-channel event stream consumed by the transcript assembler.
package generator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/parley-chat/parley/pkg/session"
	"github.com/parley-chat/parley/pkg/stream"
)

// Request describes one generation turn.
type Request struct {
	// ID identifies the request in logs and traces.
	ID uuid.UUID

	// Model is the provider-specific model name.
	Model string

	// SystemPrompt is prepended to the conversation, if non-empty.
	SystemPrompt string

	// History is the conversation so far, excluding the new input.
	History []session.Message

	// Input is the new user message text.
	Input string
}

// NewRequest builds a request with a fresh ID.
func NewRequest(model, systemPrompt string, history []session.Message, input string) Request {
	return Request{
		ID:           uuid.New(),
		Model:        model,
		SystemPrompt: systemPrompt,
		History:      history,
		Input:        input,
	}
}

// Generator streams model output as events. The returned channel
// always terminates with a Complete or Error event and is then
// closed. Cancel the context to interrupt a stream in flight; the
// generator reports the interruption as an Error event.
type Generator interface {
	// Name returns the provider name (e.g. "openai", "gemini").
	Name() string

	// Generate starts a generation and returns its event stream.
	Generate(ctx context.Context, req Request) (<-chan stream.Event, error)
}

// Cancellable is the optional capability of aborting a stream in
// flight. Callers discover it with a type assertion; a generator
// either implements it or doesn't.
type Cancellable interface {
	// Cancel aborts the stream in flight, if any. Partial output
	// already delivered stands.
	Cancel()
}

// canceler tracks the cancel function of the most recent stream,
// giving its embedder the Cancellable capability.
type canceler struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// track derives a cancellable context for a new stream and remembers
// its cancel function.
func (c *canceler) track(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	return ctx, cancel
}

// Cancel aborts the stream in flight, if any.
func (c *canceler) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Registry manages named generators.
type Registry struct {
	generators map[string]Generator
	mu         sync.RWMutex
}

// NewRegistry creates an empty generator registry.
func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[string]Generator),
	}
}

// Register registers a generator under its name.
func (r *Registry) Register(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[g.Name()] = g
}

// Get retrieves a generator by name.
func (r *Registry) Get(name string) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.generators[name]
	if !ok {
		return nil, fmt.Errorf("generator '%s' not found", name)
	}
	return g, nil
}

// Has checks whether a generator is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.generators[name]
	return ok
}

// List returns all registered generator names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	return names
}
