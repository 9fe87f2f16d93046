package generator

import (
	"context"

	"github.com/parley-chat/parley/pkg/stream"
)

// ScriptedGenerator replays a fixed event sequence. It backs tests
// and the demo mode where no provider credentials are configured.
// It is Cancellable.
type ScriptedGenerator struct {
	canceler
	name   string
	script func(req Request) []stream.Event
}

// NewScriptedGenerator creates a generator that emits the events
// script returns for each request.
func NewScriptedGenerator(name string, script func(req Request) []stream.Event) *ScriptedGenerator {
	return &ScriptedGenerator{name: name, script: script}
}

// Name returns the configured name.
func (g *ScriptedGenerator) Name() string {
	return g.name
}

// Generate replays the scripted events, honoring cancellation.
func (g *ScriptedGenerator) Generate(ctx context.Context, req Request) (<-chan stream.Event, error) {
	ctx, cancel := g.track(ctx)

	events := make(chan stream.Event)
	go func() {
		defer cancel()
		defer close(events)
		for _, ev := range g.script(req) {
			select {
			case events <- ev:
			case <-ctx.Done():
				events <- stream.Fail(ctx.Err())
				return
			}
		}
	}()
	return events, nil
}
