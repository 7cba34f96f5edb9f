// Package scheduler implements the GVNS and PBIG scheduling algorithms
// over a method.Pool and a population.Population, including the parallel
// worker coordination model described by the scheduler's concurrency
// section.
package scheduler

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mhsched/mhsched/pkg/mhlog"
	"github.com/mhsched/mhsched/pkg/method"
	"github.com/mhsched/mhsched/pkg/population"
	"github.com/mhsched/mhsched/pkg/solution"
	"github.com/mhsched/mhsched/pkg/stats"
)

// Base is the shared infrastructure every concrete scheduler (GVNS, PBIG)
// embeds: the population under optimization, the registered method pool,
// per-method statistics, the iteration log, and the termination oracle.
// Base.Mu guards every field below it that workers touch concurrently,
// mirroring Scheduler::mutex in the source this package is grounded on.
type Base struct {
	Mu sync.Mutex

	Pop      *population.Population
	Methods  *method.Pool
	Stats    *stats.Table
	Log      *mhlog.Writer
	Term     *Termination
	Maximize bool

	Finish bool // set once no further method scheduling is meaningful

	methodNames []string
	timeStart   time.Time
}

// NewBase wires the shared scheduler infrastructure. methodNames must be
// in the same dense order as pool registration (construction, then
// local-improve, then shaking).
func NewBase(pop *population.Population, pool *method.Pool, methodNames []string, log *mhlog.Writer, term *Termination, maximize bool) *Base {
	return &Base{
		Pop:         pop,
		Methods:     pool,
		Stats:       stats.New(methodNames),
		Log:         log,
		Term:        term,
		Maximize:    maximize,
		methodNames: methodNames,
	}
}

// Reset rearms the base for a new run: statistics persist across runs
// (aggregated), but the termination oracle and finish flag are rearmed.
func (b *Base) Reset() {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	b.Finish = false
	b.Term.Reset()
	b.timeStart = time.Now()
}

// Terminate reports whether the termination oracle currently holds, given
// the base's iteration count and incumbent objective. Must be called with
// Mu held or with values already snapshotted.
func (b *Base) Terminate() bool {
	return b.Finish || b.Term.Done(b.Stats.Iteration(), b.Pop.Best().Objective())
}

// UpdateMethodStatistics records the outcome of one completed method call
// against the table, and notifies the termination oracle of an
// improvement when applicable (§4.9).
func (b *Base) UpdateMethodStatistics(idx int, methodTime float64, result *method.Result, delta float64) {
	changed := result.Changed
	improved := result.Better != nil && *result.Better
	b.Stats.Update(idx, methodTime, changed, improved, delta)
	iter := b.Stats.IncIteration()
	if improved {
		b.Term.NoteImprovement(iter)
	}
}

// WriteLogEntry emits one row of the iteration log describing the
// population's current state, forced for the very first/last row of a
// run (mirrors writeLogEntry(force, inAnyCase, methodName) call sites).
func (b *Base) WriteLogEntry(force bool, methodName string) error {
	if b.Log == nil {
		return nil
	}
	dup := int64(-1)
	if b.Pop.HasHashIndex() {
		dup = 0 // concrete duplicate counts are tracked by callers that care; default omits detail
	}
	return b.Log.WriteEntry(mhlog.Entry{
		Iteration: b.Stats.Iteration(),
		BestObj:   b.Pop.Best().Objective(),
		Worst:     b.Pop.WorstObjective(),
		Mean:      b.Pop.Mean(),
		StdDev:    b.Pop.StdDev(),
		DupCount:  dup,
		Elapsed:   time.Since(b.timeStart).Seconds(),
		Method:    methodName,
	}, force)
}

// PrintStatistics renders the accumulated per-method statistics table to
// w (mirrors Scheduler::printStatistics).
func (b *Base) PrintStatistics(w io.Writer) error {
	return stats.WriteReport(w, b.Stats.Snapshot(), time.Since(b.timeStart).Seconds())
}

// delta computes the objective-value gain between a candidate and the
// incumbent it replaced, used as the "gain" column in per-method stats.
func delta(candidate, incumbent solution.Solution) float64 {
	return candidate.Objective() - incumbent.Objective()
}

// ErrNoMethodPool is returned by constructors when the registered method
// pool is empty (I4).
var ErrNoMethodPool = fmt.Errorf("scheduler: method pool must not be empty")
