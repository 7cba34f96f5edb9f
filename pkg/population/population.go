// Package population implements the fixed-size solution container the
// scheduler and its workers operate on, including the optional duplicate
// hash index and worst-element heap described by the scheduler spec.
package population

import (
	"container/heap"
	"math"

	"github.com/mhsched/mhsched/pkg/solution"
)

// DupElimMode controls the duplicate-elimination policy of a Population.
type DupElimMode int

const (
	// DupElimNone never checks for duplicates.
	DupElimNone DupElimMode = iota
	// DupElimChildren checks newly created children against the population.
	DupElimChildren
	// DupElimAll additionally reinitializes the initial population until
	// it is duplicate-free.
	DupElimAll
)

// HashIndex is the contract a duplicate-detecting index must satisfy. The
// default implementation is an in-process map; pkg/duphash provides a
// Redis-backed alternative with the same shape.
type HashIndex interface {
	Put(slot int, s solution.Solution)
	Remove(slot int)
	Find(s solution.Solution) (slot int, ok bool)
	Reset()
}

// mapIndex is the default in-memory HashIndex: hash value -> candidate
// slots, resolved against Equals to tolerate collisions.
type mapIndex struct {
	buckets map[uint64][]int
	owner   *Population
}

func newMapIndex(p *Population) *mapIndex {
	return &mapIndex{buckets: make(map[uint64][]int), owner: p}
}

func (m *mapIndex) Put(slot int, s solution.Solution) {
	h := s.HashValue()
	m.buckets[h] = append(m.buckets[h], slot)
}

func (m *mapIndex) Remove(slot int) {
	for h, slots := range m.buckets {
		for i, s := range slots {
			if s == slot {
				m.buckets[h] = append(slots[:i], slots[i+1:]...)
				break
			}
		}
	}
}

func (m *mapIndex) Find(s solution.Solution) (int, bool) {
	for _, slot := range m.buckets[s.HashValue()] {
		if m.owner.slots[slot].Equals(s) {
			return slot, true
		}
	}
	return -1, false
}

func (m *mapIndex) Reset() {
	m.buckets = make(map[uint64][]int)
}

// worstHeap is a binary heap over slot indices ordered so Pop() yields the
// current worst slot under the population's maximization sense. The best
// slot is never pushed (mirrors mh_pop.C: determineWorst never returns
// indexBest).
type worstHeap struct {
	slots    []int
	pop      *Population
	maximize bool
}

func (h *worstHeap) Len() int { return len(h.slots) }
func (h *worstHeap) Less(i, j int) bool {
	oi := h.pop.slots[h.slots[i]].Objective()
	oj := h.pop.slots[h.slots[j]].Objective()
	if h.maximize {
		return oi < oj
	}
	return oi > oj
}
func (h *worstHeap) Swap(i, j int) { h.slots[i], h.slots[j] = h.slots[j], h.slots[i] }
func (h *worstHeap) Push(x any)    { h.slots = append(h.slots, x.(int)) }
func (h *worstHeap) Pop() any {
	old := h.slots
	n := len(old)
	v := old[n-1]
	h.slots = old[:n-1]
	return v
}

// Population is a fixed-size, ordered container of solutions with O(1)
// best-index tracking, an optional worst-heap, and an optional
// duplicate-detecting hash index (I5).
type Population struct {
	slots     []solution.Solution
	maximize  bool
	bestIdx   int
	dupMode   DupElimMode
	hashIndex HashIndex
	useHeap   bool
	heap      *worstHeap

	dirty      bool
	statMean   float64
	statWorst  float64
	statStdDev float64

	rnd randSource
}

// randSource is the minimal randomness contract RandomIndex needs; callers
// pass their worker-local *rand.Rand through this interface so the
// population never owns shared RNG state (§5 "RNG").
type randSource interface {
	Intn(n int) int
}

// Options configures a new Population.
type Options struct {
	Maximize  bool
	DupMode   DupElimMode
	UseHash   bool
	UseHeap   bool
	HashIndex HashIndex // overrides the default in-memory map when set
	Rand      randSource
}

// New builds a population of size n from template, calling
// CreateUninitialized and Initialize(i) for each of the n slots.
func New(template solution.Solution, n int, opts Options) *Population {
	p := &Population{
		maximize: opts.Maximize,
		dupMode:  opts.DupMode,
		useHeap:  opts.UseHeap,
		rnd:      opts.Rand,
		dirty:    true,
	}
	if opts.UseHash {
		if opts.HashIndex != nil {
			p.hashIndex = opts.HashIndex
		} else {
			p.hashIndex = newMapIndex(p)
		}
	}
	p.slots = make([]solution.Solution, n)
	for i := 0; i < n; i++ {
		s := template.CreateUninitialized()
		p.initSlot(i, s)
	}
	if p.useHeap {
		p.rebuildHeap()
	}
	p.determineBest()
	return p
}

// initSlot initializes a fresh candidate for slot i, reinitializing until
// duplicate-free when dupMode is DupElimAll.
func (p *Population) initSlot(i int, s solution.Solution) {
	s.Initialize(i)
	if p.dupMode == DupElimAll && p.hashIndex != nil {
		for {
			if _, found := p.hashIndex.Find(s); !found {
				break
			}
			s.Initialize(i)
		}
	}
	p.slots[i] = s
	if p.hashIndex != nil {
		p.hashIndex.Put(i, s)
	}
}

// Size returns the number of slots.
func (p *Population) Size() int { return len(p.slots) }

// At borrows the i-th solution. Callers must not retain it across a
// Replace/Update of the same slot.
func (p *Population) At(i int) solution.Solution { return p.slots[i] }

// Best returns the current best slot's solution in O(1).
func (p *Population) Best() solution.Solution { return p.slots[p.bestIdx] }

// BestIndex returns the current best slot index.
func (p *Population) BestIndex() int { return p.bestIdx }

// Worst returns the index of a current worst slot, never the best slot.
// O(log n) when the worst-heap is active, else O(n).
func (p *Population) Worst() int {
	if p.useHeap {
		return p.peekWorst()
	}
	return p.determineWorst()
}

func (p *Population) determineWorst() int {
	worst := -1
	for i, s := range p.slots {
		if i == p.bestIdx {
			continue
		}
		if worst == -1 || solution.Worse(s, p.slots[worst], p.maximize) {
			worst = i
		}
	}
	if worst == -1 {
		worst = p.bestIdx
	}
	return worst
}

func (p *Population) rebuildHeap() {
	h := &worstHeap{pop: p, maximize: p.maximize}
	for i := range p.slots {
		if i != p.bestIdx {
			h.slots = append(h.slots, i)
		}
	}
	heap.Init(h)
	p.heap = h
}

func (p *Population) peekWorst() int {
	if p.heap == nil || len(p.heap.slots) == 0 {
		p.rebuildHeap()
	}
	if len(p.heap.slots) == 0 {
		return p.bestIdx
	}
	return p.heap.slots[0]
}

// Replace swaps slot i with s, returning the displaced solution. Hash
// index, worst-heap, and best-index bookkeeping are updated accordingly.
func (p *Population) Replace(i int, s solution.Solution) solution.Solution {
	old := p.slots[i]
	if p.hashIndex != nil {
		p.hashIndex.Remove(i)
	}
	p.slots[i] = s
	if p.hashIndex != nil {
		p.hashIndex.Put(i, s)
	}
	p.afterMutate(i)
	return old
}

// Update copies s into slot i in place (no ownership transfer), with the
// same bookkeeping as Replace.
func (p *Population) Update(i int, s solution.Solution) {
	if p.hashIndex != nil {
		p.hashIndex.Remove(i)
	}
	p.slots[i].CopyFrom(s)
	if p.hashIndex != nil {
		p.hashIndex.Put(i, p.slots[i])
	}
	p.afterMutate(i)
}

func (p *Population) afterMutate(i int) {
	p.dirty = true
	if i == p.bestIdx || solution.Better(p.slots[i], p.slots[p.bestIdx], p.maximize) {
		p.determineBest()
	}
	if p.useHeap {
		p.rebuildHeap()
	}
}

func (p *Population) determineBest() {
	best := 0
	for i := 1; i < len(p.slots); i++ {
		if solution.Better(p.slots[i], p.slots[best], p.maximize) {
			best = i
		}
	}
	p.bestIdx = best
}

// FindDuplicate returns a slot index whose solution equals s, or -1.
// O(1) expected when the hash index is active, O(n) otherwise.
func (p *Population) FindDuplicate(s solution.Solution) int {
	if p.hashIndex != nil {
		if slot, ok := p.hashIndex.Find(s); ok {
			return slot
		}
		return -1
	}
	for i, c := range p.slots {
		if c.Equals(s) {
			return i
		}
	}
	return -1
}

// RandomIndex returns a uniform random slot index.
func (p *Population) RandomIndex() int { return p.rnd.Intn(len(p.slots)) }

// DupMode reports the configured duplicate-elimination policy.
func (p *Population) DupMode() DupElimMode { return p.dupMode }

// HasHashIndex reports whether a duplicate-detecting hash index is active.
func (p *Population) HasHashIndex() bool { return p.hashIndex != nil }

// validateStat recomputes mean/worst/stddev if the dirty flag is set.
func (p *Population) validateStat() {
	if !p.dirty {
		return
	}
	n := float64(len(p.slots))
	sum := 0.0
	worst := p.slots[p.Worst()].Objective()
	for _, s := range p.slots {
		sum += s.Objective()
	}
	mean := sum / n
	var variance float64
	for _, s := range p.slots {
		d := s.Objective() - mean
		variance += d * d
	}
	variance /= n
	p.statMean = mean
	p.statWorst = worst
	p.statStdDev = math.Sqrt(variance)
	p.dirty = false
}

// Mean returns the population's mean objective value.
func (p *Population) Mean() float64 { p.validateStat(); return p.statMean }

// WorstObjective returns the worst objective value in the population.
func (p *Population) WorstObjective() float64 { p.validateStat(); return p.statWorst }

// StdDev returns the standard deviation of objective values.
func (p *Population) StdDev() float64 { p.validateStat(); return p.statStdDev }
