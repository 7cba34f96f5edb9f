// Package bitstring implements a fixed-length binary-string solution and
// the scheduling methods for the ONEMAX demonstration problem, including
// bit-flip local-improve and shaking moves (pkg/solutions/maxsat has its
// own copies of these moves and does not import this package). Grounded on original_source/mh_binstringsol.h and
// demo-onemax/onemax.C's oneMaxSol.
package bitstring

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/mhsched/mhsched/pkg/method"
	"github.com/mhsched/mhsched/pkg/solution"
)

// Solution is a fixed-length bit vector with a cached objective value.
type Solution struct {
	Bits      []bool
	rnd       *rand.Rand
	objective float64
	valid     bool
	eval      func(*Solution) float64
}

var _ solution.Solution = (*Solution)(nil)

// New creates an uninitialized bit vector of the given length, scored by
// eval. eval is shared by every clone (e.g. the ONEMAX objective).
func New(length int, rnd *rand.Rand, eval func(*Solution) float64) *Solution {
	return &Solution{Bits: make([]bool, length), rnd: rnd, eval: eval}
}

func (s *Solution) CreateUninitialized() solution.Solution {
	return New(len(s.Bits), s.rnd, s.eval)
}

func (s *Solution) Clone() solution.Solution {
	c := &Solution{Bits: append([]bool(nil), s.Bits...), rnd: s.rnd, eval: s.eval, objective: s.objective, valid: s.valid}
	return c
}

func (s *Solution) CopyFrom(src solution.Solution) {
	o := src.(*Solution)
	if len(s.Bits) != len(o.Bits) {
		s.Bits = make([]bool, len(o.Bits))
	}
	copy(s.Bits, o.Bits)
	s.objective = o.objective
	s.valid = o.valid
}

func (s *Solution) Equals(other solution.Solution) bool {
	o, ok := other.(*Solution)
	if !ok || len(o.Bits) != len(s.Bits) {
		return false
	}
	for i, b := range s.Bits {
		if b != o.Bits[i] {
			return false
		}
	}
	return true
}

func (s *Solution) Dist(other solution.Solution) float64 {
	o := other.(*Solution)
	d := 0
	for i, b := range s.Bits {
		if b != o.Bits[i] {
			d++
		}
	}
	return float64(d)
}

// Initialize sets every bit uniformly at random (mirrors binStringSol's
// default random initialization; count is unused here since ONEMAX-style
// problems have no position-dependent seeding).
func (s *Solution) Initialize(count int) {
	_ = count
	for i := range s.Bits {
		s.Bits[i] = s.rnd.Intn(2) == 1
	}
	s.valid = false
}

func (s *Solution) Objective() float64 {
	if !s.valid {
		s.objective = s.eval(s)
		s.valid = true
	}
	return s.objective
}

func (s *Solution) Invalidate() { s.valid = false }

// Reseed rebinds the solution's RNG, used by the worker pool so every
// worker's cloned copies draw from an independent stream (see
// solution.Reseedable).
func (s *Solution) Reseed(rnd *rand.Rand) { s.rnd = rnd }

func (s *Solution) HashValue() uint64 {
	buf := make([]byte, len(s.Bits))
	for i, b := range s.Bits {
		if b {
			buf[i] = 1
		}
	}
	sum := blake2b.Sum256(buf)
	return binary.LittleEndian.Uint64(sum[:8])
}

func (s *Solution) Write(w io.Writer, detailed int) error {
	var b strings.Builder
	for _, bit := range s.Bits {
		if bit {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	if detailed > 0 {
		_, err := fmt.Fprintf(w, "%s (obj=%g)\n", b.String(), s.Objective())
		return err
	}
	_, err := fmt.Fprintln(w, b.String())
	return err
}

func (s *Solution) Save(path string) error {
	if path == "NULL" {
		return nil
	}
	var b strings.Builder
	s.Write(&b, 0)
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func (s *Solution) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	line := strings.TrimSpace(string(data))
	bits := make([]bool, len(line))
	for i, c := range line {
		bits[i] = c == '1'
	}
	s.Bits = bits
	s.valid = false
	return nil
}

// OneMaxObjective counts the number of bits set to 1 (the ONEMAX
// objective, maximized).
func OneMaxObjective(s *Solution) float64 {
	n := 0
	for _, b := range s.Bits {
		if b {
			n++
		}
	}
	return float64(n)
}

// ConstructGreedy is ONEMAX's trivial greedy construction: every bit set
// to 1 (demo-onemax/onemax.C's greedyConstruct).
func ConstructGreedy(target solution.Solution, ctx *method.Context, res *method.Result) {
	s := target.(*Solution)
	for i := range s.Bits {
		s.Bits[i] = true
	}
	s.Invalidate()
	res.Changed = true
}

// ConstructRandom initializes the solution randomly.
func ConstructRandom(target solution.Solution, ctx *method.Context, res *method.Result) {
	s := target.(*Solution)
	s.Initialize(0)
	res.Changed = true
}

// LocalImproveKFlip is a best-improvement local search over single-bit
// flips, repeated until no flip improves the objective (mirrors
// k_flip_localsearch used by MAXSATSol.localimp with k=1). Only single-bit
// flips are examined for any k >= 1; flips of two or more bits at once
// are not searched.
func LocalImproveKFlip(k int) method.Func {
	return func(target solution.Solution, ctx *method.Context, res *method.Result) {
		s := target.(*Solution)
		improvedAny := false
		for {
			bestI, bestObj := -1, s.Objective()
			for i := 0; i < len(s.Bits) && i < k*len(s.Bits); i++ {
				s.Bits[i] = !s.Bits[i]
				s.Invalidate()
				if s.Objective() > bestObj {
					bestObj = s.Objective()
					bestI = i
				}
				s.Bits[i] = !s.Bits[i]
				s.Invalidate()
			}
			if bestI == -1 {
				break
			}
			s.Bits[bestI] = !s.Bits[bestI]
			s.Invalidate()
			improvedAny = true
		}
		res.Changed = improvedAny
	}
}

// ShakeFlipK flips k randomly chosen bits (demo-maxsat's shaking method).
func ShakeFlipK(k int) method.Func {
	return func(target solution.Solution, ctx *method.Context, res *method.Result) {
		s := target.(*Solution)
		for i := 0; i < k; i++ {
			idx := s.rnd.Intn(len(s.Bits))
			s.Bits[idx] = !s.Bits[idx]
		}
		s.Invalidate()
		res.Changed = k > 0
	}
}

// ParseBitLength is a small helper for CLI wiring: "--vars N".
func ParseBitLength(s string) (int, error) { return strconv.Atoi(s) }
