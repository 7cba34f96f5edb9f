// Package permutation implements a fixed-length permutation solution and
// the scheduling methods for the ONEPERM demonstration problem. Grounded
// on original_source/mh_permsol.h and demo-onemax/onemax.C's onePermSol.
package permutation

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

// Solution is a permutation of {0, ..., n-1} with a cached objective.
type Solution struct {
	Perm      []int
	rnd       *rand.Rand
	objective float64
	valid     bool
	eval      func(*Solution) float64
}

var _ solution.Solution = (*Solution)(nil)

// New creates an uninitialized permutation of length n, scored by eval.
func New(n int, rnd *rand.Rand, eval func(*Solution) float64) *Solution {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &Solution{Perm: p, rnd: rnd, eval: eval}
}

func (s *Solution) CreateUninitialized() solution.Solution { return New(len(s.Perm), s.rnd, s.eval) }

func (s *Solution) Clone() solution.Solution {
	return &Solution{Perm: append([]int(nil), s.Perm...), rnd: s.rnd, eval: s.eval, objective: s.objective, valid: s.valid}
}

func (s *Solution) CopyFrom(src solution.Solution) {
	o := src.(*Solution)
	if len(s.Perm) != len(o.Perm) {
		s.Perm = make([]int, len(o.Perm))
	}
	copy(s.Perm, o.Perm)
	s.objective = o.objective
	s.valid = o.valid
}

func (s *Solution) Equals(other solution.Solution) bool {
	o, ok := other.(*Solution)
	if !ok || len(o.Perm) != len(s.Perm) {
		return false
	}
	for i, v := range s.Perm {
		if v != o.Perm[i] {
			return false
		}
	}
	return true
}

func (s *Solution) Dist(other solution.Solution) float64 {
	o := other.(*Solution)
	d := 0
	for i, v := range s.Perm {
		if v != o.Perm[i] {
			d++
		}
	}
	return float64(d)
}

// Initialize shuffles the permutation uniformly at random (Fisher-Yates).
func (s *Solution) Initialize(count int) {
	_ = count
	s.rnd.Shuffle(len(s.Perm), func(i, j int) { s.Perm[i], s.Perm[j] = s.Perm[j], s.Perm[i] })
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
	buf := make([]byte, len(s.Perm)*4)
	for i, v := range s.Perm {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	sum := blake2b.Sum256(buf)
	return binary.LittleEndian.Uint64(sum[:8])
}

func (s *Solution) Write(w io.Writer, detailed int) error {
	parts := make([]string, len(s.Perm))
	for i, v := range s.Perm {
		parts[i] = strconv.Itoa(v)
	}
	line := strings.Join(parts, " ")
	if detailed > 0 {
		_, err := fmt.Fprintf(w, "%s (obj=%g)\n", line, s.Objective())
		return err
	}
	_, err := fmt.Fprintln(w, line)
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
	fields := strings.Fields(string(data))
	perm := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return fmt.Errorf("permutation: parsing %q: %w", f, err)
		}
		perm[i] = v
	}
	s.Perm = perm
	s.valid = false
	return nil
}

// OnePermObjective counts positions i where Perm[i] == i (maximized; the
// ONEPERM objective from demo-onemax/onemax.C's onePermSol).
func OnePermObjective(s *Solution) float64 {
	n := 0
	for i, v := range s.Perm {
		if v == i {
			n++
		}
	}
	return float64(n)
}

// ConstructRandom shuffles the permutation randomly.
func ConstructRandom(target solution.Solution, ctx *method.Context, res *method.Result) {
	s := target.(*Solution)
	s.Initialize(0)
	res.Changed = true
}

// LocalImproveSwap is a first-improvement local search over adjacent
// transpositions.
func LocalImproveSwap(target solution.Solution, ctx *method.Context, res *method.Result) {
	s := target.(*Solution)
	before := s.Objective()
	for i := 0; i < len(s.Perm)-1; i++ {
		s.Perm[i], s.Perm[i+1] = s.Perm[i+1], s.Perm[i]
		s.Invalidate()
		if s.Objective() > before {
			res.Changed = true
			return
		}
		s.Perm[i], s.Perm[i+1] = s.Perm[i+1], s.Perm[i]
		s.Invalidate()
	}
	res.Changed = false
}

// ShakeSwapK performs k random transpositions.
func ShakeSwapK(k int) method.Func {
	return func(target solution.Solution, ctx *method.Context, res *method.Result) {
		s := target.(*Solution)
		for i := 0; i < k; i++ {
			a := s.rnd.Intn(len(s.Perm))
			b := s.rnd.Intn(len(s.Perm))
			s.Perm[a], s.Perm[b] = s.Perm[b], s.Perm[a]
		}
		s.Invalidate()
		res.Changed = k > 0
	}
}
