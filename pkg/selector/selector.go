// Package selector implements the policy object that picks the next
// method index to try from a subset of a method pool, under one of six
// selection strategies.
package selector

import "math"

// Strategy is the closed set of selection policies a Selector may run.
type Strategy int

const (
	// SeqRep cycles through the member list, wrapping at the end.
	SeqRep Strategy = iota
	// SeqOnce returns each member once, then None.
	SeqOnce
	// RandRep picks uniformly at random, with replacement.
	RandRep
	// RandOnce picks uniformly at random without replacement, then None.
	RandOnce
	// SelfAdapt picks with probability proportional to a per-index weight
	// that adapts with observed success.
	SelfAdapt
	// TimeAdapt picks with probability inversely proportional to
	// accumulated per-method time.
	TimeAdapt
)

// None is the sentinel returned by Select when no method can be scheduled.
const None = -1

// randSource is the minimal randomness contract the selector needs.
type randSource interface {
	Intn(n int) int
	Float64() float64
}

// Selector chooses a next method index from an ordered member list. One
// instance exists per worker per method class (construction,
// local-improve, shaking); it is reset on successful acceptance or a new
// incumbent.
type Selector struct {
	strategy Strategy
	members  []int // dense method-pool indices, in registration order
	rnd      randSource

	lastSeq     int           // SeqRep/SeqOnce cursor, -1 before first select
	selected    map[int]bool  // RandOnce: which member-list positions were returned
	numSelected int           // RandOnce: count of distinct returns since last full reset
	lastMethod  int           // last index returned by Select, None if none yet

	excluded map[solutionKey]map[int]bool // per-solution-identity do-not-reconsider set

	weight []float64 // SelfAdapt: per-member weight, same length as members
	// accTime feeds TimeAdapt; populated by caller via RecordTime.
	accTime []float64
}

// solutionKey identifies a solution for the do-not-reconsider set. Callers
// supply any comparable value that is stable for the lifetime of a single
// candidate (e.g. a population slot index, or a pointer-derived id); the
// selector never dereferences it.
type solutionKey = any

const floorWeight = 1e-3

// New creates a Selector over the given dense method-pool indices.
func New(strategy Strategy, members []int, rnd randSource) *Selector {
	s := &Selector{
		strategy: strategy,
		members:  append([]int(nil), members...),
		rnd:      rnd,
		lastSeq:  -1,
		lastMethod: None,
		selected: make(map[int]bool),
		excluded: make(map[solutionKey]map[int]bool),
	}
	if strategy == SelfAdapt {
		s.weight = make([]float64, len(members))
		for i := range s.weight {
			s.weight[i] = 1.0
		}
	}
	if strategy == TimeAdapt {
		s.accTime = make([]float64, len(members))
	}
	return s
}

// Empty reports whether this selector has no member methods (I4 bookkeeping
// at the scheduler level relies on callers checking this before use).
func (s *Selector) Empty() bool { return len(s.members) == 0 }

// Size returns the number of member methods.
func (s *Selector) Size() int { return len(s.members) }

// HasFurtherMethod reports whether a further Select call for the given
// solution identity could still return a method (i.e. the sequential/
// random-once cursor is not yet exhausted and not every member is
// excluded for this identity).
func (s *Selector) HasFurtherMethod(sol solutionKey) bool {
	if len(s.members) == 0 {
		return false
	}
	switch s.strategy {
	case SeqOnce:
		if s.lastSeq+1 >= len(s.members) {
			return false
		}
	case RandOnce:
		if s.numSelected >= len(s.members) {
			return false
		}
	}
	excl := s.excluded[sol]
	if excl == nil {
		return true
	}
	for i := range s.members {
		if !excl[i] {
			return true
		}
	}
	return false
}

// Select returns the next method-pool index to try for the given solution
// identity, or None if the selector is exhausted or every candidate is
// excluded for this identity.
func (s *Selector) Select(sol solutionKey) int {
	if len(s.members) == 0 {
		return None
	}
	excl := s.excluded[sol]
	switch s.strategy {
	case SeqRep, SeqOnce:
		return s.selectSequential(excl)
	case RandRep:
		return s.selectRandom(excl)
	case RandOnce:
		return s.selectRandomOnce(excl)
	case SelfAdapt:
		return s.selectWeighted(s.weight, excl)
	case TimeAdapt:
		return s.selectWeighted(s.timeWeights(), excl)
	default:
		return None
	}
}

func (s *Selector) selectSequential(excl map[int]bool) int {
	for tries := 0; tries < len(s.members); tries++ {
		s.lastSeq++
		if s.lastSeq >= len(s.members) {
			if s.strategy == SeqOnce {
				s.lastSeq = len(s.members) - 1
				return s.setLast(None)
			}
			s.lastSeq = 0
		}
		if excl == nil || !excl[s.lastSeq] {
			return s.setLast(s.members[s.lastSeq])
		}
	}
	return s.setLast(None)
}

func (s *Selector) selectRandom(excl map[int]bool) int {
	candidates := s.candidateIndices(excl)
	if len(candidates) == 0 {
		return s.setLast(None)
	}
	return s.setLast(s.members[candidates[s.rnd.Intn(len(candidates))]])
}

func (s *Selector) selectRandomOnce(excl map[int]bool) int {
	candidates := make([]int, 0, len(s.members))
	for i := range s.members {
		if !s.selected[i] && (excl == nil || !excl[i]) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return s.setLast(None)
	}
	i := candidates[s.rnd.Intn(len(candidates))]
	s.selected[i] = true
	s.numSelected++
	return s.setLast(s.members[i])
}

func (s *Selector) candidateIndices(excl map[int]bool) []int {
	out := make([]int, 0, len(s.members))
	for i := range s.members {
		if excl == nil || !excl[i] {
			out = append(out, i)
		}
	}
	return out
}

func (s *Selector) selectWeighted(weights []float64, excl map[int]bool) int {
	total := 0.0
	for i, w := range weights {
		if excl == nil || !excl[i] {
			total += w
		}
	}
	if total <= 0 {
		return s.setLast(None)
	}
	r := s.rnd.Float64() * total
	acc := 0.0
	for i, w := range weights {
		if excl != nil && excl[i] {
			continue
		}
		acc += w
		if r <= acc {
			return s.setLast(s.members[i])
		}
	}
	// floating point fallback: return the last eligible candidate.
	for i := len(weights) - 1; i >= 0; i-- {
		if excl == nil || !excl[i] {
			return s.setLast(s.members[i])
		}
	}
	return s.setLast(None)
}

// timeWeights derives TimeAdapt weights: inversely proportional to
// accumulated time, floor-clipped to avoid starvation (§9 Open Questions).
func (s *Selector) timeWeights() []float64 {
	w := make([]float64, len(s.accTime))
	for i, t := range s.accTime {
		if t <= 0 {
			w[i] = 1.0
			continue
		}
		w[i] = math.Max(1.0/t, floorWeight)
	}
	return w
}

func (s *Selector) setLast(memberIdx int) int {
	s.lastMethod = memberIdx
	return memberIdx
}

// LastMethod returns the method-pool index most recently returned by
// Select, or None if Select has not yet succeeded.
func (s *Selector) LastMethod() int { return s.lastMethod }

// DoNotReconsiderLastMethod excludes the last selected method from future
// Select calls for the given solution identity, until Reset(true).
func (s *Selector) DoNotReconsiderLastMethod(sol solutionKey) {
	if s.lastMethod == None {
		return
	}
	for i, m := range s.members {
		if m == s.lastMethod {
			if s.excluded[sol] == nil {
				s.excluded[sol] = make(map[int]bool)
			}
			s.excluded[sol][i] = true
			return
		}
	}
}

// Reset rewinds sequential/random-once state. If full is true, the
// per-solution exclusion set is also cleared.
func (s *Selector) Reset(full bool) {
	s.lastSeq = -1
	s.lastMethod = None
	s.selected = make(map[int]bool)
	s.numSelected = 0
	if full {
		s.excluded = make(map[solutionKey]map[int]bool)
	}
}

// RecordSuccess feeds the SelfAdapt weight update: the member that was
// just tried gets its weight nudged up on success, down on failure.
func (s *Selector) RecordSuccess(methodIdx int, success bool) {
	if s.strategy != SelfAdapt {
		return
	}
	for i, m := range s.members {
		if m == methodIdx {
			if success {
				s.weight[i] += 1.0
			} else {
				s.weight[i] = math.Max(s.weight[i]*0.9, floorWeight)
			}
			return
		}
	}
}

// RecordTime feeds the TimeAdapt weight computation with the accumulated
// duration (seconds) spent in methodIdx.
func (s *Selector) RecordTime(methodIdx int, totalSeconds float64) {
	if s.strategy != TimeAdapt {
		return
	}
	for i, m := range s.members {
		if m == methodIdx {
			s.accTime[i] = totalSeconds
			return
		}
	}
}
