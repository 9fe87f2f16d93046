// Package stream folds the incremental events of one generation
// request into a live display feed and a single finalized assistant
// message. Responses arrive on two channels, "reasoning" and "answer";
// the finalized transcript always places the full reasoning block
// before the answer, whatever the network interleaving was.
package stream

// EventKind identifies one of the four events a generator emits.
type EventKind int

const (
	// EventChunk carries an increment of answer text.
	EventChunk EventKind = iota
	// EventThinking carries an increment of reasoning text.
	EventThinking
	// EventComplete signals normal end of generation. Its Text is the
	// generator's own view of the final answer and is advisory only;
	// the assembler's accumulated buffers are authoritative.
	EventComplete
	// EventError signals a failed or cancelled generation.
	EventError
)

// Event is one unit of generator output.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Chunk builds an answer-channel event.
func Chunk(text string) Event { return Event{Kind: EventChunk, Text: text} }

// Thinking builds a reasoning-channel event.
func Thinking(text string) Event { return Event{Kind: EventThinking, Text: text} }

// Complete builds a normal-completion event.
func Complete(finalText string) Event { return Event{Kind: EventComplete, Text: finalText} }

// Fail builds an error event.
func Fail(err error) Event { return Event{Kind: EventError, Err: err} }
