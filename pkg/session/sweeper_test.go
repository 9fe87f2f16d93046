package session

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestSweeperSweep(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	old := NewID(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local))
	recent := NewID(time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local))
	seedSession(t, backend, old)
	seedSession(t, backend, recent)

	sweeper := NewSweeper(backend, 30*24*time.Hour)
	sweeper.now = func() time.Time {
		return time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
	}

	if got := sweeper.Sweep(ctx); got != 1 {
		t.Errorf("Sweep() = %d deletions, want 1", got)
	}

	ids, err := backend.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []string{recent}) {
		t.Errorf("remaining sessions = %v, want [%s]", ids, recent)
	}
}

func TestSweeperSweepNothingExpired(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	recent := NewID(time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local))
	seedSession(t, backend, recent)

	sweeper := NewSweeper(backend, 365*24*time.Hour)
	sweeper.now = func() time.Time {
		return time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
	}

	if got := sweeper.Sweep(ctx); got != 0 {
		t.Errorf("Sweep() = %d deletions, want 0", got)
	}
}
