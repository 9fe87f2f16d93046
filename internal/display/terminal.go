// Package display renders conversation output to the terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/parley-chat/parley/pkg/session"
	"github.com/parley-chat/parley/pkg/stream"
)

var (
	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("135"))

	thinkingStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#4ECDC4"))

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

// Terminal writes styled conversation output to w. It implements
// stream.Sink so live chunks render as they arrive: thinking text in
// the thinking style, answer text unstyled.
type Terminal struct {
	w io.Writer

	// streaming state
	inThinking bool
	sawAnswer  bool
}

// NewTerminal creates a terminal display writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// StartStream prints the assistant label for a new response.
func (t *Terminal) StartStream() {
	t.inThinking = false
	t.sawAnswer = false
	fmt.Fprintln(t.w, assistantLabelStyle.Render("assistant"))
}

// AppendThinkingChunk renders reasoning text as it streams.
func (t *Terminal) AppendThinkingChunk(text string) {
	if !t.inThinking {
		t.inThinking = true
	}
	fmt.Fprint(t.w, thinkingStyle.Render(text))
}

// AppendChunk renders answer text as it streams.
func (t *Terminal) AppendChunk(text string) {
	if t.inThinking || !t.sawAnswer {
		// Separate the answer from any reasoning that preceded it.
		if t.inThinking {
			fmt.Fprint(t.w, "\n\n")
		}
		t.inThinking = false
		t.sawAnswer = true
	}
	fmt.Fprint(t.w, text)
}

// EndStream terminates the response block.
func (t *Terminal) EndStream() {
	fmt.Fprint(t.w, "\n\n")
	t.inThinking = false
	t.sawAnswer = false
}

// User renders a user message, listing any attached filenames.
func (t *Terminal) User(msg session.Message) {
	fmt.Fprintln(t.w, userLabelStyle.Render("you"))
	if len(msg.Filenames) > 0 {
		fmt.Fprintln(t.w, statusStyle.Render("(files: "+strings.Join(msg.Filenames, ", ")+")"))
	}
	fmt.Fprintln(t.w, msg.Content)
	fmt.Fprintln(t.w)
}

// Assistant renders a stored assistant message, splitting out the
// reasoning block when present.
func (t *Terminal) Assistant(msg session.Message) {
	fmt.Fprintln(t.w, assistantLabelStyle.Render("assistant"))
	reasoning, answer, ok := stream.Split(msg.Content)
	if ok {
		fmt.Fprintln(t.w, thinkingStyle.Render(reasoning))
		fmt.Fprintln(t.w)
		fmt.Fprintln(t.w, answer)
	} else {
		fmt.Fprintln(t.w, msg.Content)
	}
	fmt.Fprintln(t.w)
}

// Transcript renders a whole conversation with its header.
func (t *Terminal) Transcript(chatID string, messages []session.Message) {
	if chatID != "" {
		if ts, err := session.ParseID(chatID); err == nil {
			fmt.Fprintln(t.w, timestampStyle.Render(ts.Format(time.DateTime)))
		} else {
			fmt.Fprintln(t.w, timestampStyle.Render(chatID))
		}
		fmt.Fprintln(t.w)
	}
	for _, msg := range messages {
		if msg.Role == session.RoleAssistant {
			t.Assistant(msg)
		} else {
			t.User(msg)
		}
	}
}

// Status prints an informational line.
func (t *Terminal) Status(text string) {
	fmt.Fprintln(t.w, statusStyle.Render(text))
}

// Error prints an error line.
func (t *Terminal) Error(err error) {
	fmt.Fprintln(t.w, errorStyle.Render("error: ")+err.Error())
}
