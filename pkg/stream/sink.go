package stream

import (
	"strings"
	"sync"
	"time"
)

// Sink receives live display updates from the assembler. It is purely
// an output surface; no call returns a value.
type Sink interface {
	StartStream()
	AppendChunk(text string)
	AppendThinkingChunk(text string)
	EndStream()
}

// NopSink discards all updates.
type NopSink struct{}

func (NopSink) StartStream()               {}
func (NopSink) AppendChunk(string)         {}
func (NopSink) AppendThinkingChunk(string) {}
func (NopSink) EndStream()                 {}

// DefaultFlushInterval is the coalescing window for batched display
// updates.
const DefaultFlushInterval = 50 * time.Millisecond

// BatchedSink coalesces appends and forwards them to the wrapped sink
// at most once per interval, so a fast token stream doesn't turn into
// a call per token. Within each channel text is forwarded in arrival
// order with nothing lost; once the interval elapses the wrapped sink
// has seen everything accumulated so far. EndStream flushes whatever
// is still pending before forwarding.
//
// The flush timer fires on its own goroutine, so BatchedSink locks
// internally even though the rest of the pipeline is single-owner.
// Calls into the wrapped sink happen under the lock, so a timer flush
// cannot interleave with EndStream or another flush; the wrapped sink
// must not call back into BatchedSink.
type BatchedSink struct {
	next     Sink
	interval time.Duration

	mu              sync.Mutex
	pendingThinking strings.Builder
	pendingAnswer   strings.Builder
	timer           *time.Timer
}

// NewBatchedSink wraps next with an interval-based coalescing layer.
// A non-positive interval falls back to DefaultFlushInterval.
func NewBatchedSink(next Sink, interval time.Duration) *BatchedSink {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &BatchedSink{next: next, interval: interval}
}

func (b *BatchedSink) StartStream() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingThinking.Reset()
	b.pendingAnswer.Reset()
	b.stopTimerLocked()
	b.next.StartStream()
}

func (b *BatchedSink) AppendChunk(text string) {
	b.mu.Lock()
	b.pendingAnswer.WriteString(text)
	b.scheduleLocked()
	b.mu.Unlock()
}

func (b *BatchedSink) AppendThinkingChunk(text string) {
	b.mu.Lock()
	b.pendingThinking.WriteString(text)
	b.scheduleLocked()
	b.mu.Unlock()
}

func (b *BatchedSink) EndStream() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopTimerLocked()
	b.forwardLocked()
	b.next.EndStream()
}

// Flush forwards any pending text immediately.
func (b *BatchedSink) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopTimerLocked()
	b.forwardLocked()
}

func (b *BatchedSink) scheduleLocked() {
	if b.timer != nil {
		return
	}
	b.timer = time.AfterFunc(b.interval, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.timer = nil
		b.forwardLocked()
	})
}

func (b *BatchedSink) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *BatchedSink) forwardLocked() {
	if b.pendingThinking.Len() > 0 {
		b.next.AppendThinkingChunk(b.pendingThinking.String())
		b.pendingThinking.Reset()
	}
	if b.pendingAnswer.Len() > 0 {
		b.next.AppendChunk(b.pendingAnswer.String())
		b.pendingAnswer.Reset()
	}
}
