package scheduler

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mhsched/mhsched/pkg/method"
	"github.com/mhsched/mhsched/pkg/population"
	"github.com/mhsched/mhsched/pkg/solution"
)

// methodScheduler is the contract a concrete parallel scheduler (GVNS)
// implements for the worker pool to drive. Every call happens with
// Base.Mu held by the caller, matching the source's "called with mutex
// locked" convention.
type methodScheduler interface {
	base() *Base
	getNextMethod(w *Worker) (*method.Method, *method.Context)
	updateData(w *Worker, updateGlobal, storeResult bool)
	updateDataFromResultsVectors(clearResults bool)
}

// Worker is one parallel worker's state: its own small population (slot 0
// is the working incumbent, slot 1 the pre-shake reference), its RNG, and
// bookkeeping for the thread-ordering and synchronization protocol.
type Worker struct {
	ID     int
	Pop    *population.Population
	TmpSol solution.Solution
	Rand   *rand.Rand

	method     *method.Method
	ctx        *method.Context
	result     method.Result
	startTime  [2]time.Time
	isWorking  bool
	terminate  bool
}

// NewWorker creates a worker with a two-slot population seeded from tmpl.
//
// tmpl.CreateUninitialized/Clone hand back copies that still point at
// tmpl's own *rand.Rand, so every worker built from the same tmpl would
// otherwise share one RNG across goroutines. reseed rebinds each of this
// worker's solutions to its own rnd before any goroutine runs, so the
// sharing never crosses into concurrent use.
func NewWorker(id int, tmpl solution.Solution, maximize bool, rnd *rand.Rand) *Worker {
	pop := population.New(tmpl, 2, population.Options{Maximize: maximize, Rand: rnd})
	reseed(pop.At(0), rnd)
	reseed(pop.At(1), rnd)
	tmpSol := tmpl.Clone()
	reseed(tmpSol, rnd)
	return &Worker{
		ID:     id,
		Pop:    pop,
		TmpSol: tmpSol,
		Rand:   rnd,
	}
}

// reseed rebinds s's RNG to rnd when s implements solution.Reseedable; a
// no-op for solution types with no internal RNG state.
func reseed(s solution.Solution, rnd *rand.Rand) {
	if r, ok := s.(solution.Reseedable); ok {
		r.Reseed(rnd)
	}
}

// checkGlobalBest migrates the global incumbent into the worker's slot 0
// with probability schpmig, if the global incumbent is better (mirrors
// SchedulerWorker::checkGlobalBest).
func (w *Worker) checkGlobalBest(global solution.Solution, maximize bool, schpmig float64) {
	if solution.Worse(w.Pop.At(0), global, maximize) && w.Rand.Float64() <= schpmig {
		w.Pop.Update(0, global)
	}
}

// ParallelRunner coordinates a fixed set of Worker goroutines against a
// methodScheduler, supporting both the default asynchronous mode and the
// deterministic synchronous mode (§5 "Synchronous vs. asynchronous").
type ParallelRunner struct {
	sched   methodScheduler
	workers []*Worker
	sync    bool
	schpmig float64

	muNoMethod   sync.Mutex
	cvNoMethod   *sync.Cond
	muPrep       sync.Mutex
	cvPrep       *sync.Cond
	workersReady int
	muOrder      sync.Mutex
	cvOrder      *sync.Cond

	errs   []error
	errsMu sync.Mutex
}

// NewParallelRunner creates a runner over workers, which must already be
// populated via NewWorker. syncMode activates the deterministic
// lock-step protocol (schsync); schpmig is the migration probability.
func NewParallelRunner(sched methodScheduler, workers []*Worker, syncMode bool, schpmig float64) *ParallelRunner {
	r := &ParallelRunner{sched: sched, workers: workers, sync: syncMode && len(workers) > 1, schpmig: schpmig}
	r.cvNoMethod = sync.NewCond(&r.muNoMethod)
	r.cvPrep = sync.NewCond(&r.muPrep)
	r.cvOrder = sync.NewCond(&r.muOrder)
	return r
}

// Run spawns one goroutine per worker and blocks until every worker has
// stopped (either because the scheduler finished, or because the
// termination oracle fired). Errors recovered from worker goroutines are
// collected, and the first of them is returned, mirroring worker_exceptions.
func (r *ParallelRunner) Run() error {
	base := r.sched.base()
	if base.Log != nil {
		base.Log.WriteHeader()
		base.WriteLogEntry(true, "*")
	}

	var wg sync.WaitGroup
	for _, w := range r.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			r.runWorker(w)
		}(w)
	}
	wg.Wait()

	if r.sync {
		base.Mu.Lock()
		r.sched.updateDataFromResultsVectors(true)
		base.Mu.Unlock()
	}

	if base.Log != nil {
		base.Log.WriteEmpty()
	}

	r.errsMu.Lock()
	defer r.errsMu.Unlock()
	if len(r.errs) > 0 {
		return r.errs[0]
	}
	return nil
}

// wakeAll broadcasts all three condition variables, so that no worker stays
// blocked once another worker has stopped.
func (r *ParallelRunner) wakeAll() {
	for _, c := range []*sync.Cond{r.cvNoMethod, r.cvPrep, r.cvOrder} {
		c.L.Lock()
		c.Broadcast()
		c.L.Unlock()
	}
}

func (r *ParallelRunner) runWorker(w *Worker) {
	defer r.wakeAll()
	defer func() {
		if rec := recover(); rec != nil {
			r.errsMu.Lock()
			if err, ok := rec.(error); ok {
				r.errs = append(r.errs, err)
			} else {
				r.errs = append(r.errs, panicError{rec})
			}
			r.errsMu.Unlock()
		}
	}()

	base := r.sched.base()
	w.Pop.Update(1, w.Pop.At(0))

	if base.Terminate() {
		return
	}
	for {
		if base.Terminate() {
			return
		}

		if r.sync && w.ID > 0 {
			r.muOrder.Lock()
			for !r.workers[w.ID-1].isWorking && !base.Terminate() {
				r.cvOrder.Wait()
			}
			r.muOrder.Unlock()
		}

		wait := false
		for {
			if wait {
				r.muNoMethod.Lock()
				r.cvNoMethod.Wait()
				r.muNoMethod.Unlock()
				if base.Terminate() {
					return
				}
			}

			base.Mu.Lock()
			w.method, w.ctx = r.sched.getNextMethod(w)
			if r.sync && !w.isWorking {
				r.muOrder.Lock()
				w.isWorking = true
				r.cvOrder.Broadcast()
				r.muOrder.Unlock()
			}
			base.Mu.Unlock()

			if w.method == nil {
				if base.Finish {
					return
				}
				if r.sync {
					break
				}
				wait = true
				continue
			}
			break
		}

		if base.Terminate() {
			return
		}

		if r.sync {
			done := r.enterPrepPhase(w)
			if base.Terminate() {
				return
			}
			if w.method == nil {
				continue
			}
			if w.terminate {
				return
			}
			if !done {
				continue
			}
		}

		w.startTime[0] = time.Now()
		w.result = method.Result{}
		w.method.Run(w.TmpSol, w.ctx, &w.result)
		methodTime := time.Since(w.startTime[0]).Seconds()
		w.result.Resolve(w.TmpSol, w.Pop.At(0), base.Maximize)

		base.Mu.Lock()
		gain := delta(w.TmpSol, w.Pop.At(0))
		base.UpdateMethodStatistics(w.method.Idx, methodTime, &w.result, gain)
		r.sched.updateData(w, !r.sync, r.sync)

		termNow := base.Terminate()
		if !termNow {
			r.muNoMethod.Lock()
			r.cvNoMethod.Broadcast()
			r.muNoMethod.Unlock()
		}
		if base.Log != nil {
			base.WriteLogEntry(termNow, w.method.Name)
		}
		base.Mu.Unlock()

		if base.Terminate() {
			return
		}
	}
}

// enterPrepPhase implements the schsync rendezvous: every worker
// increments workersReady, the last one to arrive performs the global
// update and wakes the others. Every path returns true.
func (r *ParallelRunner) enterPrepPhase(w *Worker) bool {
	base := r.sched.base()
	base.Mu.Lock()
	r.muPrep.Lock()
	r.workersReady++
	last := r.workersReady >= len(r.workers)
	r.muPrep.Unlock()

	if !last {
		if !base.Terminate() {
			r.muPrep.Lock()
			base.Mu.Unlock()
			r.cvPrep.Wait()
			r.muPrep.Unlock()
		} else {
			base.Mu.Unlock()
		}
		return true
	}

	r.sched.updateDataFromResultsVectors(true)
	r.muPrep.Lock()
	r.workersReady = 0
	r.cvPrep.Broadcast()
	r.muPrep.Unlock()
	base.Mu.Unlock()
	return true
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("scheduler worker panic: %v", p.v) }
