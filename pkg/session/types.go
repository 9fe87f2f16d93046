// Package session provides persistence and chronological navigation
// for chat conversations. Each session is one conversation, identified
// by a sortable timestamp-derived ID and stored whole as a single JSON
// record keyed by that ID.
package session

import (
	"time"
)

// IDLayout is the time layout for session identifiers. IDs produced
// with it sort lexicographically in chronological order and double as
// the storage key.
const IDLayout = "2006-01-02_15-04-05"

// Role identifies who authored a message.
type Role string

const (
	// RoleUser marks a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant marks a generated response.
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation. Messages are immutable after
// append; corrections happen by appending new messages.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Timestamp is RFC 3339, set at append time.
	Timestamp string `json:"timestamp"`
	// Filenames lists attachments on user turns that included files.
	Filenames []string `json:"filenames,omitempty"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(role Role, content string, filenames []string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().Format(time.RFC3339),
		Filenames: filenames,
	}
}

// Session is one persisted conversation.
type Session struct {
	// ChatID is the timestamp-derived identifier.
	ChatID string `json:"chat_id"`
	// CreatedAt is the timestamp of the first message.
	CreatedAt string `json:"created_at"`
	// Messages are in conversation order and never reordered.
	Messages []Message `json:"messages"`
}

// NewID derives a session identifier from t at second resolution.
func NewID(t time.Time) string {
	return t.Format(IDLayout)
}

// ParseID recovers the creation time encoded in a session identifier.
func ParseID(id string) (time.Time, error) {
	return time.ParseInLocation(IDLayout, id, time.Local)
}

// ValidID reports whether id is a well-formed session identifier.
// time.Parse accepts some sloppy variants, so the round trip through
// the layout must reproduce the input exactly.
func ValidID(id string) bool {
	t, err := ParseID(id)
	if err != nil {
		return false
	}
	return t.Format(IDLayout) == id
}
