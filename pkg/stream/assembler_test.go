package stream

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/parley-chat/parley/pkg/session"
)

// recordingSink captures sink calls for assertions. It locks so the
// BatchedSink timer goroutine can share it.
type recordingSink struct {
	mu       sync.Mutex
	starts   int
	ends     int
	answer   strings.Builder
	thinking strings.Builder
}

func (r *recordingSink) StartStream() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
}

func (r *recordingSink) EndStream() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends++
}

func (r *recordingSink) AppendChunk(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answer.WriteString(text)
}

func (r *recordingSink) AppendThinkingChunk(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.thinking.WriteString(text)
}

func (r *recordingSink) snapshot() (starts, ends int, answer, thinking string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts, r.ends, r.answer.String(), r.thinking.String()
}

func collectFinal(a *Assembler) *[]session.Message {
	var msgs []session.Message
	a.OnFinalized(func(m session.Message) {
		msgs = append(msgs, m)
	})
	return &msgs
}

func TestAssemblerOrderingAcrossChannels(t *testing.T) {
	// Whatever the interleaving, the reasoning block precedes the
	// answer and the answer preserves per-channel order.
	interleavings := [][]Event{
		{Chunk("A"), Thinking("T"), Chunk("B"), Complete("AB")},
		{Thinking("T"), Chunk("A"), Chunk("B"), Complete("AB")},
		{Chunk("A"), Chunk("B"), Thinking("T"), Complete("AB")},
	}

	for i, events := range interleavings {
		a := NewAssembler(nil)
		msgs := collectFinal(a)
		for _, ev := range events {
			a.Handle(ev)
		}

		if len(*msgs) != 1 {
			t.Fatalf("interleaving %d: got %d messages, want 1", i, len(*msgs))
		}
		reasoning, answer, ok := Split((*msgs)[0].Content)
		if !ok {
			t.Fatalf("interleaving %d: no reasoning block in %q", i, (*msgs)[0].Content)
		}
		if reasoning != "T" {
			t.Errorf("interleaving %d: reasoning = %q, want %q", i, reasoning, "T")
		}
		if answer != "AB" {
			t.Errorf("interleaving %d: answer = %q, want %q", i, answer, "AB")
		}
	}
}

func TestAssemblerNoReasoningPassthrough(t *testing.T) {
	a := NewAssembler(nil)
	msgs := collectFinal(a)

	a.Handle(Chunk("Hi "))
	a.Handle(Chunk("there!"))
	a.Handle(Complete("Hi there!"))

	if len(*msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(*msgs))
	}
	msg := (*msgs)[0]
	if msg.Content != "Hi there!" {
		t.Errorf("content = %q, want %q", msg.Content, "Hi there!")
	}
	if msg.Role != session.RoleAssistant {
		t.Errorf("role = %q, want assistant", msg.Role)
	}
}

func TestAssemblerCompleteIdempotent(t *testing.T) {
	a := NewAssembler(nil)
	msgs := collectFinal(a)

	a.Handle(Chunk("A"))
	a.Handle(Complete("A"))
	a.Handle(Complete("A"))

	if len(*msgs) != 1 {
		t.Errorf("double complete produced %d messages, want 1", len(*msgs))
	}
	if a.Active() {
		t.Error("assembler should be idle after finalization")
	}
}

func TestAssemblerAdvisoryFinalTextIgnored(t *testing.T) {
	// The generator's own view of the final text is advisory; the
	// accumulated buffers win.
	a := NewAssembler(nil)
	msgs := collectFinal(a)

	a.Handle(Chunk("accumulated"))
	a.Handle(Complete("something else entirely"))

	if (*msgs)[0].Content != "accumulated" {
		t.Errorf("content = %q, want accumulated buffers", (*msgs)[0].Content)
	}
}

func TestAssemblerPartialOnError(t *testing.T) {
	a := NewAssembler(nil)
	msgs := collectFinal(a)
	var gotErr error
	a.OnError(func(err error) { gotErr = err })

	a.Handle(Thinking("T"))
	a.Handle(Chunk("A"))
	a.Handle(Fail(errors.New("boom")))

	if len(*msgs) != 1 {
		t.Fatalf("got %d messages, want 1 partial message", len(*msgs))
	}
	reasoning, answer, ok := Split((*msgs)[0].Content)
	if !ok || reasoning != "T" || answer != "A" {
		t.Errorf("partial content = %q, want reasoning T and answer A", (*msgs)[0].Content)
	}
	if gotErr != nil {
		t.Errorf("partial success should not surface an error, got %v", gotErr)
	}
}

func TestAssemblerErrorWithNothingAccumulated(t *testing.T) {
	a := NewAssembler(nil)
	msgs := collectFinal(a)
	var gotErr error
	a.OnError(func(err error) { gotErr = err })

	a.Handle(Fail(errors.New("boom")))

	if len(*msgs) != 0 {
		t.Errorf("got %d messages, want 0", len(*msgs))
	}
	if gotErr == nil || gotErr.Error() != "boom" {
		t.Errorf("error = %v, want boom", gotErr)
	}
}

func TestAssemblerSinkLifecycle(t *testing.T) {
	sink := &recordingSink{}
	a := NewAssembler(sink)
	collectFinal(a)

	a.Handle(Thinking("think"))
	a.Handle(Chunk("answer"))
	a.Handle(Complete(""))

	starts, ends, answer, thinking := sink.snapshot()
	if starts != 1 || ends != 1 {
		t.Errorf("starts/ends = %d/%d, want 1/1", starts, ends)
	}
	if answer != "answer" || thinking != "think" {
		t.Errorf("sink saw answer=%q thinking=%q", answer, thinking)
	}
}

func TestAssemblerSecondRequestAfterFinalize(t *testing.T) {
	a := NewAssembler(nil)
	msgs := collectFinal(a)

	a.Handle(Thinking("first-reasoning"))
	a.Handle(Chunk("first"))
	a.Handle(Complete(""))

	a.Handle(Chunk("second"))
	a.Handle(Complete(""))

	if len(*msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(*msgs))
	}
	if (*msgs)[1].Content != "second" {
		t.Errorf("second request leaked state: content = %q", (*msgs)[1].Content)
	}
}

func TestComposeSplitRoundTrip(t *testing.T) {
	tests := []struct {
		reasoning    string
		answer       string
		hasReasoning bool
	}{
		{"thought", "answer", true},
		{"", "answer only", false},
		{"multi\nline\nthought", "reply", true},
		{"", "", true},
	}
	for _, tt := range tests {
		composed := Compose(tt.reasoning, tt.answer, tt.hasReasoning)
		reasoning, answer, ok := Split(composed)
		if ok != tt.hasReasoning {
			t.Errorf("Split(%q) ok = %v, want %v", composed, ok, tt.hasReasoning)
		}
		if tt.hasReasoning && (reasoning != tt.reasoning || answer != tt.answer) {
			t.Errorf("Split(%q) = %q/%q, want %q/%q", composed, reasoning, answer, tt.reasoning, tt.answer)
		}
		if !tt.hasReasoning && answer != tt.answer {
			t.Errorf("Split(%q) answer = %q, want %q", composed, answer, tt.answer)
		}
	}
}
