package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/yatrik/fleetml/internal/store"
)

// Scheduler retrains every model on a fixed interval and prunes old reports
// from the SQLite store when one is configured.
type Scheduler struct {
	runner   *Runner
	interval time.Duration
	store    *store.Store
	keep     int
}

func NewScheduler(runner *Runner, interval time.Duration) *Scheduler {
	return &Scheduler{runner: runner, interval: interval}
}

// SetPruning keeps only the newest keep reports per model after each cycle.
func (s *Scheduler) SetPruning(st *store.Store, keep int) {
	s.store = st
	s.keep = keep
}

// Run blocks until ctx is cancelled. The first cycle starts immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.cycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	log.Println("scheduler: running all models")
	summary := s.runner.RunAll(ctx, "scheduler")
	for key, msg := range summary.Errors {
		log.Printf("scheduler: %s: %s", key, msg)
	}

	if s.store == nil || s.keep <= 0 {
		return
	}
	removed, err := s.store.PruneReports(ctx, s.keep)
	if err != nil {
		log.Printf("scheduler: prune reports: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("scheduler: pruned %d old reports", removed)
	}
}
