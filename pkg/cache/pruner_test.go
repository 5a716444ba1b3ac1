package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingPurger struct {
	calls int
	err   error
}

func (p *countingPurger) PurgeExpired(ctx context.Context) (int64, error) {
	p.calls++
	if p.err != nil {
		return 0, p.err
	}
	return 3, nil
}

func TestPruner_PruneNow(t *testing.T) {
	purger := &countingPurger{}
	p := NewPruner(purger, "")

	var reported int64
	p.OnPurge = func(n int64) { reported = n }

	removed, err := p.PruneNow(context.Background())
	if err != nil || removed != 3 {
		t.Fatalf("PruneNow() = %d, %v", removed, err)
	}
	if reported != 3 {
		t.Errorf("OnPurge got %d, want 3", reported)
	}
}

func TestPruner_PruneNowError(t *testing.T) {
	p := NewPruner(&countingPurger{err: errors.New("disk full")}, "")
	p.OnPurge = func(int64) { t.Error("OnPurge called on failure") }

	if _, err := p.PruneNow(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestPruner_StartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPruner(NewMemoryStore(0), "*/5 * * * *")
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.IsRunning() {
		t.Fatal("pruner not running")
	}

	next := p.NextRun()
	if next == nil || !next.After(time.Now().Add(-time.Second)) {
		t.Errorf("NextRun() = %v", next)
	}

	p.Stop()
	if p.IsRunning() {
		t.Error("pruner still running after Stop")
	}
}

func TestPruner_EmptySchedule(t *testing.T) {
	p := NewPruner(NewMemoryStore(0), "")
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if p.IsRunning() {
		t.Error("pruner should not run without a schedule")
	}
	if p.NextRun() != nil {
		t.Error("NextRun() should be nil without a schedule")
	}
}

func TestPruner_InvalidSchedule(t *testing.T) {
	p := NewPruner(NewMemoryStore(0), "every tuesday")
	if err := p.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
