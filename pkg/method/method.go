// Package method implements the scheduler's method registry: named,
// arity-tagged, indexable handles over callables bound to a solution type.
package method

import (
	"fmt"

	"github.com/mhsched/mhsched/pkg/solution"
)

// Arity is the number of input solutions a method consumes.
type Arity int

const (
	// Arity0 methods create a solution from scratch (construction).
	Arity0 Arity = 0
	// Arity1 methods transform an existing solution in place.
	Arity1 Arity = 1
)

// Context carries per-selection bookkeeping shared by reference with the
// running method: which worker is calling, how many times this (method,
// solution-identity) pair has been invoked, and the worker's incumbent for
// delta-objective reference.
type Context struct {
	WorkerID   int
	CallCount  int
	Incumbent  solution.Solution
}

// Result is filled in by a method call and post-processed by the worker
// loop to supply any field the method left at its zero value.
type Result struct {
	// Changed reports whether the solution was actually modified.
	Changed bool
	// Better reports whether the result is strictly better than the
	// incumbent. Left unset (nil) by a method that wants the worker loop
	// to derive it from Changed+comparison against pop[0].
	Better *bool
	// Accept reports whether the incumbent should be updated with this
	// result. Left unset (nil) to default to the (possibly derived)
	// value of Better.
	Accept *bool
	// Reconsider reports whether this method should be eligible for
	// selection again for the same solution identity. Defaults to true.
	Reconsider *bool
}

// Resolve fills in Better/Accept/Reconsider left unset by the method,
// exactly as §4.8 step 5 and §3's MethodResult description require:
// Better defaults to comparing against incumbent (only if Changed),
// Accept defaults to Better, Reconsider defaults to true.
func (r *Result) Resolve(candidate, incumbent solution.Solution, maximize bool) {
	if r.Better == nil {
		b := false
		if r.Changed {
			b = solution.Better(candidate, incumbent, maximize)
		}
		r.Better = &b
	}
	if r.Accept == nil {
		a := *r.Better
		r.Accept = &a
	}
	if r.Reconsider == nil {
		t := true
		r.Reconsider = &t
	}
}

// Func is the callable bound to a solution: it mutates (or builds) target,
// recording its outcome in res.
type Func func(target solution.Solution, ctx *Context, res *Result)

// Method is an immutable, registered handle over a Func.
type Method struct {
	Name  string
	Arity Arity
	Idx   int // dense index within the owning Pool, assigned at registration
	Par   int // integer control parameter (e.g. shaking strength k)
	fn    Func
}

// New creates a Method. Idx is assigned by Pool.Add.
func New(name string, arity Arity, par int, fn Func) *Method {
	return &Method{Name: name, Arity: arity, Par: par, fn: fn, Idx: -1}
}

// Run invokes the method's bound callable.
func (m *Method) Run(target solution.Solution, ctx *Context, res *Result) {
	m.fn(target, ctx, res)
}

// Pool is the scheduler's ordered vector of methods. Registration order
// matters: the constructor of a scheduler is given the sizes of the three
// contiguous blocks (construction, local-improve, shaking) in insertion
// order (§4.3, I4).
type Pool struct {
	methods []*Method
	nCons   int
	nLocal  int
	nShake  int
}

// NewPool registers methods in three contiguous blocks and assigns dense
// indices in insertion order. The block order is fixed: construction,
// local-improvement, shaking (§4.3).
func NewPool(construction, localImprove, shaking []*Method) (*Pool, error) {
	p := &Pool{nCons: len(construction), nLocal: len(localImprove), nShake: len(shaking)}
	idx := 0
	for _, blk := range [][]*Method{construction, localImprove, shaking} {
		for _, m := range blk {
			if m.Idx != -1 {
				return nil, fmt.Errorf("method %q already registered in another pool", m.Name)
			}
			m.Idx = idx
			p.methods = append(p.methods, m)
			idx++
		}
	}
	return p, nil
}

// Size returns the total number of registered methods (I4).
func (p *Pool) Size() int { return len(p.methods) }

// At returns the method at dense index i.
func (p *Pool) At(i int) *Method { return p.methods[i] }

// ConstructionIndices returns the dense indices of the construction block.
func (p *Pool) ConstructionIndices() []int { return indexRange(0, p.nCons) }

// LocalImproveIndices returns the dense indices of the local-improve block.
func (p *Pool) LocalImproveIndices() []int { return indexRange(p.nCons, p.nCons+p.nLocal) }

// ShakingIndices returns the dense indices of the shaking block.
func (p *Pool) ShakingIndices() []int {
	return indexRange(p.nCons+p.nLocal, p.nCons+p.nLocal+p.nShake)
}

func indexRange(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
