package stream

import (
	"strings"

	"github.com/parley-chat/parley/pkg/session"
)

// Thinking block delimiters used when composing the final transcript
// entry. These match what gets persisted, so Split can recover the two
// segments from a stored message.
const (
	thinkingOpen  = "<thinking>\n"
	thinkingClose = "\n</thinking>\n\n"
)

// Compose joins a reasoning block and an answer into one transcript
// entry, reasoning first. With no reasoning the answer passes through
// untouched.
func Compose(reasoning, answer string, hasReasoning bool) string {
	if !hasReasoning {
		return answer
	}
	return thinkingOpen + reasoning + thinkingClose + answer
}

// Split recovers the reasoning and answer segments from a composed
// transcript entry. ok is false when content has no reasoning block.
func Split(content string) (reasoning, answer string, ok bool) {
	if !strings.HasPrefix(content, thinkingOpen) {
		return "", content, false
	}
	rest := content[len(thinkingOpen):]
	idx := strings.Index(rest, thinkingClose)
	if idx == -1 {
		return "", content, false
	}
	return rest[:idx], rest[idx+len(thinkingClose):], true
}

// Assembler is the per-request streaming state machine:
// Idle -> Streaming -> Finalizing -> Idle. The first chunk on either
// channel opens the stream; a complete or error event closes it.
// Completion is idempotent, and an error after partial output
// finalizes what accumulated rather than dropping text the user
// already saw.
//
// Assembler is not safe for concurrent use; Handle must be called from
// the owning goroutine, in per-channel delivery order.
type Assembler struct {
	sink Sink

	answer       strings.Builder
	reasoning    strings.Builder
	hasReasoning bool
	active       bool

	onFinal func(session.Message)
	onError func(error)
}

// NewAssembler creates an assembler feeding live updates to sink.
// A nil sink discards them.
func NewAssembler(sink Sink) *Assembler {
	if sink == nil {
		sink = NopSink{}
	}
	return &Assembler{sink: sink}
}

// OnFinalized registers the callback invoked with the one finalized
// message per request.
func (a *Assembler) OnFinalized(fn func(session.Message)) {
	a.onFinal = fn
}

// OnError registers the callback invoked when a generation fails with
// nothing accumulated.
func (a *Assembler) OnError(fn func(error)) {
	a.onError = fn
}

// Active reports whether a stream is currently open.
func (a *Assembler) Active() bool {
	return a.active
}

// Reset discards any in-flight state, returning to Idle. Called at the
// start of a new generation request.
func (a *Assembler) Reset() {
	a.answer.Reset()
	a.reasoning.Reset()
	a.hasReasoning = false
	a.active = false
}

// Handle applies one generator event.
func (a *Assembler) Handle(ev Event) {
	switch ev.Kind {
	case EventChunk:
		a.begin()
		a.answer.WriteString(ev.Text)
		a.sink.AppendChunk(ev.Text)

	case EventThinking:
		a.begin()
		a.hasReasoning = true
		a.reasoning.WriteString(ev.Text)
		a.sink.AppendThinkingChunk(ev.Text)

	case EventComplete:
		// A second complete for an already-finalized request is a
		// no-op; completion and chunk delivery may race upstream.
		if !a.active {
			return
		}
		a.finalize()

	case EventError:
		if a.answer.Len() == 0 && a.reasoning.Len() == 0 {
			// Nothing accumulated: the request failed outright.
			if a.active {
				a.sink.EndStream()
			}
			a.Reset()
			if a.onError != nil {
				a.onError(ev.Err)
			}
			return
		}
		// Partial output was already rendered; keep it.
		a.finalize()
	}
}

func (a *Assembler) begin() {
	if a.active {
		return
	}
	a.Reset()
	a.active = true
	a.sink.StartStream()
}

// finalize composes the two buffers into one assistant message, hands
// it to the finalization callback, and returns to Idle.
func (a *Assembler) finalize() {
	content := Compose(a.reasoning.String(), a.answer.String(), a.hasReasoning)
	a.sink.EndStream()
	a.Reset()

	if a.onFinal != nil {
		a.onFinal(session.NewMessage(session.RoleAssistant, content, nil))
	}
}
