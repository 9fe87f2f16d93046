package session

import (
	"context"
	"log"
	"time"
)

// Direction selects a chronological neighbor during navigation.
type Direction string

const (
	// Older navigates toward earlier sessions ("left").
	Older Direction = "left"
	// Newer navigates toward later sessions ("right").
	Newer Direction = "right"
)

// Store owns the current conversation: creation, append, persistence,
// retrieval, deletion, and chronological navigation.
//
// Store is not safe for concurrent use. All calls must come from the
// owning goroutine; the Backend handles its own synchronization.
type Store struct {
	backend Backend
	now     func() time.Time

	currentID string
	messages  []Message
}

// NewStore creates a store over the given backend with no current
// session.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		now:     time.Now,
	}
}

// NewSession starts a fresh in-memory session and makes it current.
// No record is written until the first message is saved.
func (s *Store) NewSession() string {
	s.currentID = NewID(s.now())
	s.messages = nil
	return s.currentID
}

// CurrentID returns the current session's identifier, or "" if none.
func (s *Store) CurrentID() string {
	return s.currentID
}

// Messages returns a copy of the current session's message list.
func (s *Store) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Append adds a message to the current session in memory. Persistence
// is a separate, explicit SaveCurrent call.
func (s *Store) Append(msg Message) {
	s.messages = append(s.messages, msg)
}

// AppendNew builds a message stamped now and appends it.
func (s *Store) AppendNew(role Role, content string, filenames []string) Message {
	msg := NewMessage(role, content, filenames)
	msg.Timestamp = s.now().Format(time.RFC3339)
	s.Append(msg)
	return msg
}

// SaveCurrent serializes the whole current session and writes it,
// overwriting any existing record for its ID. A session with no ID or
// no messages is not persisted and yields ErrEmptySession.
func (s *Store) SaveCurrent(ctx context.Context) (string, error) {
	if s.currentID == "" || len(s.messages) == 0 {
		return "", ErrEmptySession
	}

	sess := &Session{
		ChatID:    s.currentID,
		CreatedAt: s.messages[0].Timestamp,
		Messages:  s.Messages(),
	}
	if err := s.backend.Save(ctx, sess); err != nil {
		return "", err
	}
	return s.currentID, nil
}

// Load reads a persisted session and, on success, replaces the current
// session and message list with the loaded data.
func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	sess, err := s.backend.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.currentID = sess.ChatID
	s.messages = make([]Message, len(sess.Messages))
	copy(s.messages, sess.Messages)
	return sess, nil
}

// Delete removes a persisted session. Returns false if the record
// doesn't exist or the delete failed.
func (s *Store) Delete(ctx context.Context, id string) bool {
	if err := s.backend.Delete(ctx, id); err != nil {
		return false
	}
	return true
}

// DeleteAll removes every persisted session. Returns true only if all
// deletions succeeded, or there was nothing to delete.
func (s *Store) DeleteAll(ctx context.Context) bool {
	ids := s.List(ctx)
	ok := true
	for _, id := range ids {
		if !s.Delete(ctx, id) {
			ok = false
		}
	}
	return ok
}

// List returns persisted session IDs in chronological order. Listing
// failures degrade to an empty list.
func (s *Store) List(ctx context.Context) []string {
	ids, err := s.backend.List(ctx)
	if err != nil {
		log.Printf("session: list failed: %v", err)
		return nil
	}
	return ids
}

// Clear drops the current session without saving.
func (s *Store) Clear() {
	s.currentID = ""
	s.messages = nil
}

// Adjacent finds the chronological neighbor of the current session
// among the persisted ones. At a boundary it returns ("", false).
//
// A current ID absent from the persisted list (typically a fresh,
// never-saved session) is treated as newer than everything persisted:
// Older yields the most recent saved session, Newer yields nothing.
// With no current session at all, Older yields the first saved session
// and Newer the last.
func (s *Store) Adjacent(ctx context.Context, dir Direction) (string, bool) {
	ids := s.List(ctx)
	if len(ids) == 0 {
		return "", false
	}

	if s.currentID == "" {
		if dir == Older {
			return ids[0], true
		}
		return ids[len(ids)-1], true
	}

	idx := -1
	for i, id := range ids {
		if id == s.currentID {
			idx = i
			break
		}
	}
	if idx == -1 {
		if dir == Older {
			return ids[len(ids)-1], true
		}
		return "", false
	}

	switch {
	case dir == Older && idx > 0:
		return ids[idx-1], true
	case dir == Newer && idx < len(ids)-1:
		return ids[idx+1], true
	}
	return "", false
}
