// Package jobs runs background maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Auditor re-derives cached remainders and reports how many it repaired
type Auditor interface {
	Audit(ctx context.Context) (int, error)
}

// Scheduler owns the cron runner for background jobs
type Scheduler struct {
	cron    *cron.Cron
	auditor Auditor
	spec    string
}

// NewScheduler creates a scheduler running the audit on spec.
// An empty spec disables the audit.
func NewScheduler(auditor Auditor, spec string) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC), cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.DiscardLogger),
		)),
		auditor: auditor,
		spec:    spec,
	}
}

// Start registers the jobs and starts the runner
func (s *Scheduler) Start(ctx context.Context) error {
	if s.spec != "" {
		if _, err := s.cron.AddFunc(s.spec, func() { s.RunAudit(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule audit: %w", err)
		}
	}

	s.cron.Start()
	slog.Info("scheduler started", "audit", s.spec)
	return nil
}

// RunAudit runs one audit pass and logs the outcome
func (s *Scheduler) RunAudit(ctx context.Context) {
	start := time.Now()
	repaired, err := s.auditor.Audit(ctx)
	if err != nil {
		slog.Error("[CRON] audit failed", "error", err, "repaired", repaired)
		return
	}
	if repaired > 0 {
		slog.Warn("[CRON] audit repaired bills", "repaired", repaired, "duration", time.Since(start))
		return
	}
	slog.Debug("[CRON] audit clean", "duration", time.Since(start))
}

// Stop stops the runner, waiting for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}
