package population

import (
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhsched/mhsched/pkg/solution"
)

// intSol is a minimal solution.Solution fixture: its objective is just a
// settable integer, letting tests control population ordering directly.
type intSol struct {
	val   float64
	valid bool
}

func newIntSol(v float64) *intSol { return &intSol{val: v, valid: true} }

func (s *intSol) CreateUninitialized() solution.Solution { return &intSol{} }
func (s *intSol) Clone() solution.Solution                { c := *s; return &c }
func (s *intSol) CopyFrom(src solution.Solution)           { *s = *src.(*intSol) }
func (s *intSol) Equals(other solution.Solution) bool {
	o, ok := other.(*intSol)
	return ok && o.val == s.val
}
func (s *intSol) Dist(other solution.Solution) float64 {
	o := other.(*intSol)
	d := s.val - o.val
	if d < 0 {
		d = -d
	}
	return d
}
func (s *intSol) Initialize(count int) { s.val = float64(count); s.valid = true }
func (s *intSol) Objective() float64   { return s.val }
func (s *intSol) Invalidate()          {}
func (s *intSol) HashValue() uint64    { return uint64(s.val) }
func (s *intSol) Write(w io.Writer, detailed int) error { return nil }
func (s *intSol) Save(path string) error                { return nil }
func (s *intSol) Load(path string) error                 { return nil }

func TestNewPopulationTracksBest(t *testing.T) {
	tmpl := newIntSol(0)
	rnd := rand.New(rand.NewSource(1))
	pop := New(tmpl, 5, Options{Maximize: true, Rand: rnd})
	// Initialize(i) sets val=i, so slot 4 (val=4) is the maximum.
	assert.Equal(t, 4, pop.BestIndex())
	assert.Equal(t, 4.0, pop.Best().Objective())
}

func TestWorstNeverReturnsBest(t *testing.T) {
	tmpl := newIntSol(0)
	rnd := rand.New(rand.NewSource(1))
	pop := New(tmpl, 5, Options{Maximize: true, Rand: rnd})
	worst := pop.Worst()
	assert.NotEqual(t, pop.BestIndex(), worst)
	assert.Equal(t, 0.0, pop.At(worst).Objective())
}

func TestWorstHeapAgreesWithLinearScan(t *testing.T) {
	tmpl := newIntSol(0)
	rnd := rand.New(rand.NewSource(2))
	popHeap := New(tmpl, 6, Options{Maximize: true, UseHeap: true, Rand: rnd})
	popLinear := New(tmpl, 6, Options{Maximize: true, UseHeap: false, Rand: rnd})

	assert.Equal(t, popLinear.At(popLinear.Worst()).Objective(), popHeap.At(popHeap.Worst()).Objective())
}

func TestReplaceUpdatesBestIndex(t *testing.T) {
	tmpl := newIntSol(0)
	rnd := rand.New(rand.NewSource(1))
	pop := New(tmpl, 3, Options{Maximize: true, Rand: rnd})
	require.Equal(t, 2, pop.BestIndex())

	pop.Replace(0, newIntSol(100))
	assert.Equal(t, 0, pop.BestIndex())
	assert.Equal(t, 100.0, pop.Best().Objective())
}

func TestFindDuplicateViaHashIndex(t *testing.T) {
	tmpl := newIntSol(0)
	rnd := rand.New(rand.NewSource(1))
	pop := New(tmpl, 4, Options{Maximize: true, UseHash: true, Rand: rnd})

	dupSlot := pop.FindDuplicate(newIntSol(2))
	assert.Equal(t, 2, dupSlot)
	assert.Equal(t, -1, pop.FindDuplicate(newIntSol(999)))
}

func TestUpdateRemovesStaleHashEntry(t *testing.T) {
	tmpl := newIntSol(0)
	rnd := rand.New(rand.NewSource(1))
	pop := New(tmpl, 4, Options{Maximize: true, UseHash: true, Rand: rnd})

	pop.Update(1, newIntSol(50))
	assert.Equal(t, -1, pop.FindDuplicate(newIntSol(1)))
	assert.Equal(t, 1, pop.FindDuplicate(newIntSol(50)))
}

func TestMeanAndStdDev(t *testing.T) {
	tmpl := newIntSol(0)
	rnd := rand.New(rand.NewSource(1))
	pop := New(tmpl, 5, Options{Maximize: true, Rand: rnd})
	// values 0,1,2,3,4: mean=2, population stddev = sqrt(2)
	assert.InDelta(t, 2.0, pop.Mean(), 1e-9)
	assert.InDelta(t, 1.4142135623730951, pop.StdDev(), 1e-9)
	assert.Equal(t, 0.0, pop.WorstObjective())
}

func TestRandomIndexWithinBounds(t *testing.T) {
	tmpl := newIntSol(0)
	rnd := rand.New(rand.NewSource(1))
	pop := New(tmpl, 7, Options{Maximize: true, Rand: rnd})
	for i := 0; i < 50; i++ {
		idx := pop.RandomIndex()
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 7)
	}
}

func TestMinimizeSenseTracksSmallestAsBest(t *testing.T) {
	tmpl := newIntSol(0)
	rnd := rand.New(rand.NewSource(1))
	pop := New(tmpl, 5, Options{Maximize: false, Rand: rnd})
	assert.Equal(t, 0, pop.BestIndex())
	assert.Equal(t, 0.0, pop.Best().Objective())
}
