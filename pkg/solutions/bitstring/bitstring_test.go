package bitstring

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhsched/mhsched/pkg/method"
)

func TestConstructGreedySetsEveryBit(t *testing.T) {
	s := New(8, rand.New(rand.NewSource(1)), OneMaxObjective)
	var res method.Result
	ConstructGreedy(s, &method.Context{}, &res)
	assert.True(t, res.Changed)
	assert.Equal(t, 8.0, s.Objective())
}

func TestConstructRandomMarksChanged(t *testing.T) {
	s := New(16, rand.New(rand.NewSource(1)), OneMaxObjective)
	var res method.Result
	ConstructRandom(s, &method.Context{}, &res)
	assert.True(t, res.Changed)
}

func TestLocalImproveKFlipReachesAllOnes(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	s := New(10, rnd, OneMaxObjective)
	s.Initialize(0)

	improve := LocalImproveKFlip(1)
	var res method.Result
	improve(s, &method.Context{}, &res)

	assert.Equal(t, 10.0, s.Objective())
}

func TestLocalImproveKFlipNoOpOnOptimum(t *testing.T) {
	s := New(6, rand.New(rand.NewSource(3)), OneMaxObjective)
	for i := range s.Bits {
		s.Bits[i] = true
	}
	s.Invalidate()

	improve := LocalImproveKFlip(1)
	var res method.Result
	improve(s, &method.Context{}, &res)
	assert.False(t, res.Changed)
	assert.Equal(t, 6.0, s.Objective())
}

func TestShakeFlipKFlipsAtMostKBits(t *testing.T) {
	s := New(20, rand.New(rand.NewSource(4)), OneMaxObjective)
	before := append([]bool(nil), s.Bits...)

	shake := ShakeFlipK(3)
	var res method.Result
	shake(s, &method.Context{}, &res)
	assert.True(t, res.Changed)

	diff := 0
	for i, b := range s.Bits {
		if b != before[i] {
			diff++
		}
	}
	assert.LessOrEqual(t, diff, 3)
}

func TestShakeFlipKZeroIsNoOp(t *testing.T) {
	s := New(5, rand.New(rand.NewSource(5)), OneMaxObjective)
	var res method.Result
	ShakeFlipK(0)(s, &method.Context{}, &res)
	assert.False(t, res.Changed)
}

func TestCloneIsIndependentCopy(t *testing.T) {
	s := New(5, rand.New(rand.NewSource(6)), OneMaxObjective)
	s.Bits[0] = true
	clone := s.Clone()
	clone.(*Solution).Bits[0] = false
	assert.True(t, s.Bits[0])
	assert.False(t, clone.(*Solution).Bits[0])
}

func TestEqualsComparesBits(t *testing.T) {
	a := New(4, rand.New(rand.NewSource(7)), OneMaxObjective)
	b := New(4, rand.New(rand.NewSource(7)), OneMaxObjective)
	assert.True(t, a.Equals(b))
	b.Bits[0] = true
	assert.False(t, a.Equals(b))
}

func TestDistCountsMismatches(t *testing.T) {
	a := New(4, rand.New(rand.NewSource(8)), OneMaxObjective)
	b := New(4, rand.New(rand.NewSource(8)), OneMaxObjective)
	b.Bits[0], b.Bits[1] = true, true
	assert.Equal(t, 2.0, a.Dist(b))
}

func TestHashValueStableForEqualBits(t *testing.T) {
	a := New(6, rand.New(rand.NewSource(9)), OneMaxObjective)
	b := New(6, rand.New(rand.NewSource(9)), OneMaxObjective)
	a.Bits[2] = true
	b.Bits[2] = true
	assert.Equal(t, a.HashValue(), b.HashValue())
}

func TestSaveLoadRoundTrips(t *testing.T) {
	s := New(5, rand.New(rand.NewSource(10)), OneMaxObjective)
	s.Bits[0], s.Bits[2], s.Bits[4] = true, true, true

	path := filepath.Join(t.TempDir(), "sol.out")
	require.NoError(t, s.Save(path))

	loaded := New(5, rand.New(rand.NewSource(10)), OneMaxObjective)
	require.NoError(t, loaded.Load(path))
	assert.True(t, s.Equals(loaded))
}

func TestSaveNullPathIsNoOp(t *testing.T) {
	s := New(3, rand.New(rand.NewSource(11)), OneMaxObjective)
	require.NoError(t, s.Save("NULL"))
	_, err := os.Stat("NULL")
	assert.True(t, os.IsNotExist(err))
}

func TestReseedRebindsRand(t *testing.T) {
	s := New(3, rand.New(rand.NewSource(1)), OneMaxObjective)
	r2 := rand.New(rand.NewSource(2))
	s.Reseed(r2)
	assert.Same(t, r2, s.rnd)
}
