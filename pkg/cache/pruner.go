package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner periodically purges expired entries from a Purger on a cron
// schedule. Expiry is already passive, so pruning only reclaims space.
type Pruner struct {
	purger   Purger
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool

	// OnPurge, if set, is called with the number of rows removed by each
	// successful run.
	OnPurge func(removed int64)
}

// NewPruner creates a pruner for purger. An empty schedule disables it.
func NewPruner(purger Purger, schedule string) *Pruner {
	return &Pruner{
		purger:   purger,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "cache.pruner"),
	}
}

// Start schedules pruning. Common expressions:
//   - "*/15 * * * *" - every 15 minutes
//   - "0 * * * *"    - hourly
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.schedule == "" {
		p.logger.Info("prune schedule not configured, skipping pruner")
		return nil
	}
	if p.running {
		return nil
	}

	if _, err := cron.ParseStandard(p.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.schedule, err)
	}

	if _, err := p.cron.AddFunc(p.schedule, func() {
		p.run(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("cache pruner started", "schedule", p.schedule)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// PruneNow runs one purge immediately.
func (p *Pruner) PruneNow(ctx context.Context) (int64, error) {
	removed, err := p.purger.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	if p.OnPurge != nil {
		p.OnPurge(removed)
	}
	return removed, nil
}

func (p *Pruner) run(ctx context.Context) {
	removed, err := p.PruneNow(ctx)
	if err != nil {
		p.logger.Error("scheduled cache pruning failed", "error", err)
		return
	}

	if removed > 0 {
		p.logger.Info("scheduled cache pruning completed", "removed", removed)
	} else {
		p.logger.Debug("scheduled cache pruning completed, nothing expired")
	}
}

// Stop stops the schedule and waits for a running purge to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		<-p.cron.Stop().Done()
		p.running = false
		p.logger.Info("cache pruner stopped")
	}
}

// IsRunning reports whether the schedule is active.
func (p *Pruner) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// NextRun returns the next scheduled purge, or nil when not scheduled.
func (p *Pruner) NextRun() *time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
