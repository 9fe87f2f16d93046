package session

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper deletes persisted sessions older than a retention window on
// a cron schedule. The creation time comes from the session ID itself,
// so sweeping needs no record reads.
type Sweeper struct {
	backend Backend
	maxAge  time.Duration
	now     func() time.Time
	cron    *cron.Cron
	onSweep func(deleted int)
}

// OnSweep registers a callback invoked after every scheduled sweep
// with the number of sessions removed.
func (s *Sweeper) OnSweep(fn func(deleted int)) {
	s.onSweep = fn
}

// NewSweeper creates a sweeper that removes sessions older than
// maxAge.
func NewSweeper(backend Backend, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		backend: backend,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Start schedules recurring sweeps, e.g. "@hourly" or "0 3 * * *".
func (s *Sweeper) Start(schedule string) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, func() {
		deleted := s.Sweep(context.Background())
		if s.onSweep != nil {
			s.onSweep(deleted)
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop cancels scheduled sweeps. A sweep in progress finishes.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep removes every session older than the retention window and
// returns how many were deleted. Failures on individual records are
// logged and skipped.
func (s *Sweeper) Sweep(ctx context.Context) int {
	ids, err := s.backend.List(ctx)
	if err != nil {
		log.Printf("session: sweep list failed: %v", err)
		return 0
	}

	cutoff := s.now().Add(-s.maxAge)
	deleted := 0
	for _, id := range ids {
		created, err := ParseID(id)
		if err != nil {
			continue
		}
		if !created.Before(cutoff) {
			continue
		}
		if err := s.backend.Delete(ctx, id); err != nil {
			log.Printf("session: sweep delete %s failed: %v", id, err)
			continue
		}
		deleted++
	}
	return deleted
}
