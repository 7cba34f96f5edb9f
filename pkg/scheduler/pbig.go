package scheduler

import (
	"math/rand"

	"github.com/mhsched/mhsched/pkg/method"
	"github.com/mhsched/mhsched/pkg/selector"
	"github.com/mhsched/mhsched/pkg/solution"
)

// PBIG implements the population-based iterated-greedy destroy/recreate
// scheduler: round 1 constructs every population slot from scratch; every
// subsequent block of Size(population) iterations applies a
// destroy-and-recreate method to each slot in a scratch buffer, merging
// the whole block back into the main population only once it completes
// (so a destroyed slot is never visible mid-block). Single-threaded by
// construction, grounded on original_source/mh_pbig.C.
type PBIG struct {
	*Base

	constructionSel *selector.Selector
	destrec         []*selector.Selector // one per population slot
	scratch         []solution.Solution  // pop2 in the source
	rnd             *rand.Rand
}

// PBIGOptions configures a PBIG scheduler.
type PBIGOptions struct {
	DestroyRecreateStrat selector.Strategy
	Rand                 *rand.Rand
}

// NewPBIG builds a PBIG scheduler. base.Pop must already be populated
// (the construction methods will overwrite every slot during round 1).
func NewPBIG(base *Base, opts PBIGOptions) (*PBIG, error) {
	if base.Methods.Size() == 0 {
		return nil, ErrNoMethodPool
	}
	p := &PBIG{Base: base, rnd: opts.Rand}

	consIdx := base.Methods.ConstructionIndices()
	p.constructionSel = selector.New(selector.SeqRep, consIdx, opts.Rand)

	drIdx := base.Methods.LocalImproveIndices()
	if len(drIdx) == 0 {
		drIdx = base.Methods.ShakingIndices()
	}
	for s := 0; s < base.Pop.Size(); s++ {
		p.destrec = append(p.destrec, selector.New(opts.DestroyRecreateStrat, drIdx, opts.Rand))
		p.scratch = append(p.scratch, base.Pop.At(s).CreateUninitialized())
	}
	return p, nil
}

// Run executes rounds until termination (mirrors PBIG::run).
func (p *PBIG) Run() error {
	psize := p.Pop.Size()
	p.Mu.Lock()
	p.timeStart = timeNow()
	p.Mu.Unlock()

	if p.Log != nil {
		p.Log.WriteHeader()
		p.WriteLogEntry(true, "*")
	}

	for !p.Terminate() {
		iter := p.Stats.Iteration()
		s := int(iter % int64(psize))

		var sel *selector.Selector
		if iter < int64(psize) {
			sel = p.constructionSel
		} else {
			sel = p.destrec[s]
		}
		idx := sel.Select(s)
		if idx == selector.None {
			break
		}
		m := p.Methods.At(idx)

		p.scratch[s].CopyFrom(p.Pop.At(s))

		var res method.Result
		start := timeNow()
		m.Run(p.scratch[s], &method.Context{WorkerID: 0, Incumbent: p.Pop.Best()}, &res)
		methodTime := timeSince(start)
		res.Resolve(p.scratch[s], p.Pop.Best(), p.Maximize)

		gain := delta(p.scratch[s], p.Pop.At(s))
		p.UpdateMethodStatistics(idx, methodTime, &res, gain)
		nextIter := p.Stats.Iteration()

		termNow := p.Terminate()
		p.WriteLogEntry(termNow, m.Name)

		if nextIter == int64(psize) {
			for i := 0; i < psize; i++ {
				p.scratch[i] = p.Pop.Replace(i, p.scratch[i])
			}
		} else if nextIter > int64(psize) && nextIter%int64(psize) == 0 {
			for i := 0; i < psize; i++ {
				r := p.Pop.Worst()
				if solution.Worse(p.Pop.At(r), p.scratch[i], p.Maximize) {
					p.scratch[i] = p.Pop.Replace(r, p.scratch[i])
					p.destrec[r].Reset(false)
				}
			}
		}

		if p.Terminate() {
			break
		}
	}

	if p.Log != nil {
		p.Log.WriteEmpty()
	}
	return nil
}

// Reset rearms the PBIG scheduler for a new run.
func (p *PBIG) Reset() {
	p.Base.Reset()
	p.constructionSel.Reset(true)
	for _, d := range p.destrec {
		d.Reset(true)
	}
}
