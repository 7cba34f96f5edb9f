package scheduler

import (
	"math/rand"

	"github.com/mhsched/mhsched/pkg/method"
	"github.com/mhsched/mhsched/pkg/selector"
	"github.com/mhsched/mhsched/pkg/solution"
)

// GVNS implements the Construct -> VND -> Shake state machine: the
// construction methods run once, in order, through one selector shared by
// all workers; each worker then repeatedly
// runs local-improvement methods to convergence (the embedded VND) and,
// on convergence, a shaking method, restarting the VND whenever shaking
// (or local improvement) produces a new incumbent. Grounded on
// original_source/mh_gvns.C.
type GVNS struct {
	*Base

	constructionSel *selector.Selector
	locimp          []*selector.Selector // one per worker
	shaking         []*selector.Selector // one per worker

	workers []*Worker
	runner  *ParallelRunner

	initialSolutionExists bool
	schlirep              bool // restart VND from scratch after any local-improve acceptance
	schsync               bool
	schpmig               float64
}

// GVNSOptions configures a GVNS scheduler.
type GVNSOptions struct {
	NumWorkers    int
	LocImpStrat   selector.Strategy
	ShakingStrat  selector.Strategy
	SchLIRep      bool // §6 "schlirep"
	SchSync       bool // §6 "schsync"
	SchPMig       float64
	RandForWorker func(workerID int) *rand.Rand
}

// NewGVNS builds a GVNS scheduler over base's method pool, whose
// construction/local-improve/shaking blocks were assigned by
// method.NewPool.
func NewGVNS(base *Base, tmpl solution.Solution, opts GVNSOptions) (*GVNS, error) {
	if base.Methods.Size() == 0 {
		return nil, ErrNoMethodPool
	}
	g := &GVNS{
		Base:     base,
		schlirep: opts.SchLIRep,
		schsync:  opts.SchSync && opts.NumWorkers > 1,
		schpmig:  opts.SchPMig,
	}

	consIdx := base.Methods.ConstructionIndices()
	rnd0 := opts.RandForWorker(0)
	g.constructionSel = selector.New(selector.SeqOnce, consIdx, rnd0)

	for w := 0; w < opts.NumWorkers; w++ {
		rnd := opts.RandForWorker(w)
		g.locimp = append(g.locimp, selector.New(opts.LocImpStrat, base.Methods.LocalImproveIndices(), rnd))
		g.shaking = append(g.shaking, selector.New(opts.ShakingStrat, base.Methods.ShakingIndices(), rnd))
		worker := NewWorker(w, tmpl, base.Maximize, rnd)
		g.workers = append(g.workers, worker)
	}

	g.runner = NewParallelRunner(g, g.workers, g.schsync, g.schpmig)
	return g, nil
}

func (g *GVNS) base() *Base { return g.Base }

// Run executes the worker pool until termination.
func (g *GVNS) Run() error {
	g.Base.Mu.Lock()
	g.Base.timeStart = timeNow()
	g.Base.Mu.Unlock()
	return g.runner.Run()
}

// Reset rearms the GVNS for a fresh run (selectors, incumbents, base).
func (g *GVNS) Reset() {
	g.Base.Reset()
	g.initialSolutionExists = false
	g.constructionSel.Reset(true)
	for i := range g.workers {
		g.locimp[i].Reset(true)
		g.shaking[i].Reset(true)
	}
}

// copyBetter folds worker's current solution into its slot 0, and,
// if it is better than the scheduler's global incumbent, promotes it.
func (g *GVNS) copyBetter(w *Worker, updateGlobal bool) {
	w.Pop.Update(0, w.TmpSol)
	if updateGlobal && solution.Better(w.Pop.At(0), g.Pop.Best(), g.Maximize) {
		g.Pop.Replace(g.Pop.BestIndex(), w.Pop.At(0).Clone())
	}
}

func (g *GVNS) getNextMethod(w *Worker) (*method.Method, *method.Context) {
	// construction phase: run every construction method once, in order
	if !g.constructionSel.Empty() && (w.method == nil || g.constructionSel.HasFurtherMethod(w.ID)) {
		idx := g.constructionSel.Select(w.ID)
		if idx != selector.None {
			return g.Methods.At(idx), &method.Context{WorkerID: w.ID, Incumbent: g.Pop.Best()}
		}
	}

	locimp := g.locimp[w.ID]
	shaking := g.shaking[w.ID]

	if locimp.LastMethod() == selector.None && shaking.LastMethod() == selector.None &&
		solution.Better(w.Pop.At(0), w.TmpSol, g.Maximize) {
		w.TmpSol.CopyFrom(w.Pop.At(0))
	}

	if !locimp.Empty() {
		idx := locimp.Select(w.ID)
		if idx != selector.None {
			return g.Methods.At(idx), &method.Context{WorkerID: w.ID, Incumbent: w.Pop.At(0)}
		}
		locimp.Reset(true)
	}

	if !shaking.Empty() {
		if w.method == nil && locimp.Empty() {
			if !g.initialSolutionExists && (g.Pop.Size() == 0 || !g.constructionSel.Empty()) {
				return nil, nil
			}
			w.Pop.Update(0, g.Pop.Best())
			w.TmpSol.CopyFrom(w.Pop.At(0))
		}
		idx := shaking.Select(w.ID)
		if idx != selector.None {
			w.startTime[1] = timeNow()
			return g.Methods.At(idx), &method.Context{WorkerID: w.ID, Incumbent: w.Pop.At(0)}
		}
	}

	g.Finish = true
	return nil, nil
}

// recordFeedback feeds this call's outcome back into sel, so SelfAdapt's
// success-weighted roulette and TimeAdapt's inverse-time weighting (§4.4,
// §9) actually adapt; a no-op for every other selection strategy.
func (g *GVNS) recordFeedback(sel *selector.Selector, idx int, w *Worker) {
	sel.RecordSuccess(idx, *w.result.Better)
	if snap := g.Stats.Snapshot(); idx >= 0 && idx < len(snap) {
		sel.RecordTime(idx, snap[idx].TotTime)
	}
}

func (g *GVNS) updateData(w *Worker, updateGlobal, storeResult bool) {
	_ = storeResult
	idx := w.method.Idx
	consN := len(g.Methods.ConstructionIndices())
	locN := len(g.Methods.LocalImproveIndices())

	if idx < consN {
		if *w.result.Accept {
			g.copyBetter(w, updateGlobal)
			if !g.schsync {
				g.initialSolutionExists = true
			}
		} else if updateGlobal {
			w.checkGlobalBest(g.Pop.Best(), g.Maximize, g.schpmig)
		}
		return
	}

	locimp := g.locimp[w.ID]
	shaking := g.shaking[w.ID]

	if idx < consN+locN {
		g.recordFeedback(locimp, idx, w)
		if *w.result.Reconsider == false || (!w.result.Changed) {
			locimp.DoNotReconsiderLastMethod(w.ID)
		}
		if *w.result.Accept {
			g.copyBetter(w, updateGlobal)
			if g.schlirep {
				locimp.Reset(true)
				return
			}
			if locimp.HasFurtherMethod(w.ID) {
				return
			}
		} else if locimp.HasFurtherMethod(w.ID) {
			if w.result.Changed {
				w.TmpSol.CopyFrom(w.Pop.At(0))
			}
			return
		}

		// embedded VND has converged
		if solution.Better(w.Pop.At(0), w.Pop.At(1), g.Maximize) {
			g.updateShakingStatistics(w, true)
			w.Pop.Update(1, w.Pop.At(0))
			shaking.Reset(true)
			if updateGlobal {
				w.checkGlobalBest(g.Pop.Best(), g.Maximize, g.schpmig)
			}
			w.TmpSol.CopyFrom(w.Pop.At(0))
		} else {
			g.updateShakingStatistics(w, false)
			w.TmpSol.CopyFrom(w.Pop.At(1))
			w.Pop.Update(0, w.TmpSol)
		}
		return
	}

	// shaking method applied
	g.recordFeedback(shaking, idx, w)
	if locimp.Empty() {
		if *w.result.Reconsider == false {
			shaking.DoNotReconsiderLastMethod(w.ID)
		}
		if *w.result.Accept {
			w.Pop.Update(1, w.Pop.At(0))
			g.copyBetter(w, updateGlobal)
			g.updateShakingStatistics(w, true)
			shaking.Reset(true)
		} else {
			g.updateShakingStatistics(w, false)
			if updateGlobal {
				w.checkGlobalBest(g.Pop.Best(), g.Maximize, g.schpmig)
			}
			w.TmpSol.CopyFrom(w.Pop.At(0))
		}
	} else {
		if *w.result.Accept {
			g.copyBetter(w, updateGlobal)
		} else {
			w.Pop.Update(0, w.TmpSol)
		}
	}
}

func (g *GVNS) updateShakingStatistics(w *Worker, improved bool) {
	idx := g.shaking[w.ID].LastMethod()
	if idx == selector.None {
		return
	}
	elapsed := timeSince(w.startTime[1])
	gain := 0.0
	if improved {
		gain = absFloat(w.Pop.At(0).Objective() - w.Pop.At(1).Objective())
	}
	g.Stats.Update(idx, elapsed, true, improved, gain)
}

func (g *GVNS) updateDataFromResultsVectors(clearResults bool) {
	_ = clearResults
	best := g.workers[0].Pop.At(0)
	for _, w := range g.workers[1:] {
		if solution.Better(w.Pop.At(0), best, g.Maximize) {
			best = w.Pop.At(0)
		}
	}
	if solution.Better(best, g.Pop.Best(), g.Maximize) {
		g.initialSolutionExists = true
		g.Pop.Replace(g.Pop.BestIndex(), best.Clone())
	}
	if g.schpmig > 0 {
		for _, w := range g.workers {
			w.checkGlobalBest(g.Pop.Best(), g.Maximize, g.schpmig)
		}
	}
}
