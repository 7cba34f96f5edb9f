package scheduler

import (
	"context"
	"time"
)

// TerminationConfig collects every criterion the termination oracle checks
// (§6 parameter table: titer, tciter, tobj, ttime, wctime).
type TerminationConfig struct {
	// MaxIter stops once the global iteration counter reaches this value.
	// -1 disables the criterion.
	MaxIter int64
	// MaxIterSinceImprovement stops once this many iterations have elapsed
	// without a new incumbent. -1 disables the criterion.
	MaxIterSinceImprovement int64
	// TargetObjective stops once the incumbent is at least as good as this
	// value (direction-aware). The criterion is checked only when HasTarget
	// is true.
	TargetObjective float64
	HasTarget       bool
	// MaxDuration stops once the elapsed time exceeds this value. Zero
	// disables the criterion.
	MaxDuration time.Duration
	// UseWallClock names the timing mode. Done does not read it:
	// MaxDuration is always measured in wall-clock time, and there is no
	// CPU-time accounting (the runtime does not expose per-goroutine CPU
	// time).
	UseWallClock bool
	// Maximize is the optimization sense, needed to interpret TargetObjective.
	Maximize bool
}

// Termination is the mutable oracle a scheduler consults after every
// completed method application and once before starting.
type Termination struct {
	cfg TerminationConfig

	start            time.Time
	lastImprovement  int64
	ctx              context.Context
}

// NewTermination creates a Termination bound to ctx, whose cancellation is
// itself a termination criterion (the external-cancel path of §4.6).
func NewTermination(ctx context.Context, cfg TerminationConfig) *Termination {
	return &Termination{cfg: cfg, start: time.Now(), ctx: ctx}
}

// Reset rearms the start time and improvement counter for a fresh run,
// keeping accumulated statistics elsewhere untouched.
func (t *Termination) Reset() {
	t.start = time.Now()
	t.lastImprovement = 0
}

// NoteImprovement records that iteration marks a new incumbent, resetting
// the "iterations since improvement" counter.
func (t *Termination) NoteImprovement(iteration int64) {
	t.lastImprovement = iteration
}

// Done reports whether any termination criterion currently holds, given
// the scheduler's present iteration count and incumbent objective.
func (t *Termination) Done(iteration int64, incumbentObj float64) bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
	}
	if t.cfg.MaxIter >= 0 && iteration >= t.cfg.MaxIter {
		return true
	}
	if t.cfg.MaxIterSinceImprovement >= 0 && iteration-t.lastImprovement >= t.cfg.MaxIterSinceImprovement {
		return true
	}
	if t.cfg.HasTarget {
		if t.cfg.Maximize && incumbentObj >= t.cfg.TargetObjective {
			return true
		}
		if !t.cfg.Maximize && incumbentObj <= t.cfg.TargetObjective {
			return true
		}
	}
	if t.cfg.MaxDuration > 0 && time.Since(t.start) >= t.cfg.MaxDuration {
		return true
	}
	return false
}

// Elapsed returns the time elapsed since the oracle was created or reset.
func (t *Termination) Elapsed() time.Duration { return time.Since(t.start) }
