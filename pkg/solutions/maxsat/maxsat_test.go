package maxsat

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhsched/mhsched/pkg/method"
)

// sampleInstance is small and fully satisfiable by Bits = [true, false,
// false]: clause1 (x1) needs x1=true, clause2 (-x2 or x3) needs x2=false
// or x3=true, clause3 (x2 or -x3) needs x2=true or x3=false.
func sampleInstance() *Instance {
	return &Instance{NVars: 3, Clauses: [][]int{{1}, {-2, 3}, {2, -3}}}
}

func TestObjectiveCountsSatisfiedClauses(t *testing.T) {
	inst := sampleInstance()
	s := New(inst, rand.New(rand.NewSource(1)))
	s.Bits = []bool{true, false, false}
	s.Invalidate()
	assert.Equal(t, 3.0, s.Objective())
}

func TestObjectiveCountsPartialSatisfaction(t *testing.T) {
	inst := sampleInstance()
	s := New(inst, rand.New(rand.NewSource(1)))
	s.Bits = []bool{false, true, true}
	s.Invalidate()
	// clause1 (x1) fails; clause2 (-x2 or x3): x3=true satisfies; clause3
	// (x2 or -x3): x2=true satisfies.
	assert.Equal(t, 2.0, s.Objective())
}

func TestConstructMarksChanged(t *testing.T) {
	inst := sampleInstance()
	s := New(inst, rand.New(rand.NewSource(2)))
	var res method.Result
	Construct(s, &method.Context{}, &res)
	assert.True(t, res.Changed)
}

func TestLocalImproveReachesFullSatisfaction(t *testing.T) {
	inst := sampleInstance()
	s := New(inst, rand.New(rand.NewSource(3)))
	s.Bits = []bool{false, false, false}
	s.Invalidate()

	var res method.Result
	LocalImprove(s, &method.Context{}, &res)
	assert.Equal(t, 3.0, s.Objective())
}

func TestLocalImproveNoOpWhenAlreadyOptimal(t *testing.T) {
	inst := sampleInstance()
	s := New(inst, rand.New(rand.NewSource(4)))
	s.Bits = []bool{true, false, false}
	s.Invalidate()

	var res method.Result
	LocalImprove(s, &method.Context{}, &res)
	assert.False(t, res.Changed)
}

func TestShakeFlipKFlipsBitsAndInvalidates(t *testing.T) {
	inst := sampleInstance()
	s := New(inst, rand.New(rand.NewSource(5)))
	s.Bits = []bool{true, false, false}
	s.Objective()

	shake := ShakeFlipK(2)
	var res method.Result
	shake(s, &method.Context{}, &res)
	assert.True(t, res.Changed)
}

func TestShakeFlipKZeroIsNoOp(t *testing.T) {
	inst := sampleInstance()
	s := New(inst, rand.New(rand.NewSource(6)))
	var res method.Result
	ShakeFlipK(0)(s, &method.Context{}, &res)
	assert.False(t, res.Changed)
}

func TestCloneSharesInstanceButNotBits(t *testing.T) {
	inst := sampleInstance()
	s := New(inst, rand.New(rand.NewSource(7)))
	s.Bits[0] = true
	clone := s.Clone().(*Solution)
	assert.Same(t, inst, clone.Inst)
	clone.Bits[0] = false
	assert.True(t, s.Bits[0])
}

func TestEqualsComparesBits(t *testing.T) {
	inst := sampleInstance()
	a := New(inst, rand.New(rand.NewSource(8)))
	b := New(inst, rand.New(rand.NewSource(8)))
	assert.True(t, a.Equals(b))
	b.Bits[0] = true
	assert.False(t, a.Equals(b))
}

func TestSaveLoadRoundTrips(t *testing.T) {
	inst := sampleInstance()
	s := New(inst, rand.New(rand.NewSource(9)))
	s.Bits = []bool{true, false, true}

	path := filepath.Join(t.TempDir(), "assign.out")
	require.NoError(t, s.Save(path))

	loaded := New(inst, rand.New(rand.NewSource(10)))
	require.NoError(t, loaded.Load(path))
	assert.True(t, s.Equals(loaded))
}

func TestReseedRebindsRand(t *testing.T) {
	inst := sampleInstance()
	s := New(inst, rand.New(rand.NewSource(1)))
	r2 := rand.New(rand.NewSource(2))
	s.Reseed(r2)
	assert.Same(t, r2, s.rnd)
}
