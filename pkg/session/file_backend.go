package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileBackend implements Backend with one JSON file per session.
// Storage layout:
//
//	~/.parley/chats/
//	  ├── 2024-01-01_00-00-00.json
//	  └── 2024-01-02_12-30-45.json
//
// Files whose name does not parse as a session identifier are ignored
// by List.
type FileBackend struct {
	dir    string
	mu     sync.RWMutex
	closed bool
}

// NewFileBackend creates a file-based storage backend.
// If dir is empty, uses ~/.parley/chats.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".parley", "chats")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create chats directory: %w", err)
	}

	return &FileBackend{dir: dir}, nil
}

// Dir returns the directory session files are written to.
func (f *FileBackend) Dir() string {
	return f.dir
}

// Save writes the session as <id>.json, overwriting any existing file.
func (f *FileBackend) Save(ctx context.Context, sess *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStorageClosed
	}
	if err := validateID(sess.ChatID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	path := filepath.Join(f.dir, sess.ChatID+".json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Load reads a session record by ID.
func (f *FileBackend) Load(ctx context.Context, id string) (*Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStorageClosed
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(f.dir, id+".json")) // #nosec G304 - id validated against the timestamp layout
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	if sess.ChatID == "" {
		sess.ChatID = id
	}
	return &sess, nil
}

// Delete removes a session file.
func (f *FileBackend) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStorageClosed
	}
	if err := validateID(id); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(f.dir, id+".json")); err != nil {
		if os.IsNotExist(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// List scans the chats directory for valid session files, sorted
// ascending by ID.
func (f *FileBackend) List(ctx context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStorageClosed
	}

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read chats directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		id := strings.TrimSuffix(name, ".json")
		if id == name || !ValidID(id) {
			continue
		}
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids, nil
}

// Close releases the backend. Subsequent calls fail with
// ErrStorageClosed.
func (f *FileBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

// validateID rejects identifiers that don't match the timestamp
// layout. The layout admits no path separators, so a valid ID is also
// a safe path component.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty session ID", ErrSessionNotFound)
	}
	if !ValidID(id) {
		return fmt.Errorf("%w: malformed session ID %q", ErrSessionNotFound, id)
	}
	return nil
}
