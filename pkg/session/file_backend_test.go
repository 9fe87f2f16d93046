package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestBackend(t *testing.T) *FileBackend {
	t.Helper()
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func TestFileBackendSaveLoad(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	sess := &Session{
		ChatID:    "2024-01-01_00-00-00",
		CreatedAt: "2024-01-01T00:00:00Z",
		Messages: []Message{
			{Role: RoleUser, Content: "hi", Timestamp: "2024-01-01T00:00:00Z"},
			{Role: RoleAssistant, Content: "hello", Timestamp: "2024-01-01T00:00:05Z"},
		},
	}
	if err := backend.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := backend.Load(ctx, sess.ChatID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, sess) {
		t.Errorf("Load() = %+v, want %+v", loaded, sess)
	}
}

func TestFileBackendSaveOverwrites(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	sess := &Session{
		ChatID:    "2024-01-01_00-00-00",
		CreatedAt: "2024-01-01T00:00:00Z",
		Messages:  []Message{{Role: RoleUser, Content: "v1", Timestamp: "2024-01-01T00:00:00Z"}},
	}
	if err := backend.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	sess.Messages = append(sess.Messages, Message{Role: RoleAssistant, Content: "v2", Timestamp: "2024-01-01T00:00:05Z"})
	if err := backend.Save(ctx, sess); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	loaded, err := backend.Load(ctx, sess.ChatID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Messages) != 2 {
		t.Errorf("expected 2 messages after overwrite, got %d", len(loaded.Messages))
	}
}

func TestFileBackendLoadMissing(t *testing.T) {
	backend := newTestBackend(t)

	_, err := backend.Load(context.Background(), "2024-01-01_00-00-00")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Load() error = %v, want ErrSessionNotFound", err)
	}
}

func TestFileBackendLoadCorrupt(t *testing.T) {
	backend := newTestBackend(t)
	id := "2024-01-01_00-00-00"
	if err := os.WriteFile(filepath.Join(backend.Dir(), id+".json"), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := backend.Load(context.Background(), id); err == nil {
		t.Error("Load() of corrupt file should fail")
	}
}

func TestFileBackendDelete(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	sess := &Session{
		ChatID:    "2024-01-01_00-00-00",
		CreatedAt: "2024-01-01T00:00:00Z",
		Messages:  []Message{{Role: RoleUser, Content: "hi", Timestamp: "2024-01-01T00:00:00Z"}},
	}
	if err := backend.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := backend.Delete(ctx, sess.ChatID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := backend.Delete(ctx, sess.ChatID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Delete() error = %v, want ErrSessionNotFound", err)
	}
}

func TestFileBackendListSkipsMalformedNames(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	for _, id := range []string{"2024-01-02_00-00-00", "2024-01-01_00-00-00"} {
		sess := &Session{
			ChatID:    id,
			CreatedAt: "2024-01-01T00:00:00Z",
			Messages:  []Message{{Role: RoleUser, Content: "hi", Timestamp: "2024-01-01T00:00:00Z"}},
		}
		if err := backend.Save(ctx, sess); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	// Files that must be silently excluded, not errors.
	for _, name := range []string{"notes.txt", "backup.json", "2024-13-99_00-00-00.json", "config.yaml"} {
		if err := os.WriteFile(filepath.Join(backend.Dir(), name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := backend.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"2024-01-01_00-00-00", "2024-01-02_00-00-00"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("List() = %v, want %v", ids, want)
	}
}

func TestFileBackendClosed(t *testing.T) {
	backend := newTestBackend(t)
	if err := backend.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	ctx := context.Background()
	if _, err := backend.List(ctx); !errors.Is(err, ErrStorageClosed) {
		t.Errorf("List() after close error = %v, want ErrStorageClosed", err)
	}
	if _, err := backend.Load(ctx, "2024-01-01_00-00-00"); !errors.Is(err, ErrStorageClosed) {
		t.Errorf("Load() after close error = %v, want ErrStorageClosed", err)
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"2024-01-01_00-00-00", true},
		{"2031-12-31_23-59-59", true},
		{"2024-1-1_0-0-0", false},
		{"2024-13-01_00-00-00", false},
		{"hello", false},
		{"", false},
		{"2024-01-01_00-00-00.json", false},
	}
	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
