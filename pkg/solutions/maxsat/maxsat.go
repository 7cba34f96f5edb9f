package maxsat

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/mhsched/mhsched/pkg/method"
	"github.com/mhsched/mhsched/pkg/solution"
)

// Solution assigns a boolean value to each of Inst's variables (1-indexed
// in the instance, 0-indexed here; Bits[i] is the value of variable i+1).
type Solution struct {
	Bits      []bool
	Inst      *Instance
	rnd       *rand.Rand
	objective float64
	valid     bool
}

var _ solution.Solution = (*Solution)(nil)

// New creates an uninitialized solution for inst.
func New(inst *Instance, rnd *rand.Rand) *Solution {
	return &Solution{Bits: make([]bool, inst.NVars), Inst: inst, rnd: rnd}
}

func (s *Solution) CreateUninitialized() solution.Solution { return New(s.Inst, s.rnd) }

func (s *Solution) Clone() solution.Solution {
	return &Solution{Bits: append([]bool(nil), s.Bits...), Inst: s.Inst, rnd: s.rnd, objective: s.objective, valid: s.valid}
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

func (s *Solution) Initialize(count int) {
	_ = count
	for i := range s.Bits {
		s.Bits[i] = s.rnd.Intn(2) == 1
	}
	s.valid = false
}

// Objective counts satisfied clauses, per MAXSATSol::objective: a clause
// with literal v is satisfied when Bits[|v|-1] == (v>0).
func (s *Solution) Objective() float64 {
	if !s.valid {
		fulfilled := 0
		for _, clause := range s.Inst.Clauses {
			for _, v := range clause {
				idx := v - 1
				if v < 0 {
					idx = -v - 1
				}
				want := v > 0
				if s.Bits[idx] == want {
					fulfilled++
					break
				}
			}
		}
		s.objective = float64(fulfilled)
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

// Construct is MAXSATSol::construct: random initialization.
func Construct(target solution.Solution, ctx *method.Context, res *method.Result) {
	s := target.(*Solution)
	s.Initialize(0)
	res.Changed = true
}

// kFlipLocalSearch performs a best-improvement search over single-bit
// flips, repeated until no flip improves the objective, mirroring
// binStringSol::k_flip_localsearch(k=1) as used by MAXSATSol::localimp.
func kFlipLocalSearch(s *Solution) bool {
	improvedAny := false
	for {
		before := s.Objective()
		bestI, bestObj := -1, before
		for i := range s.Bits {
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
	return improvedAny
}

// LocalImprove is MAXSATSol::localimp: best-improvement 1-flip search.
func LocalImprove(target solution.Solution, ctx *method.Context, res *method.Result) {
	s := target.(*Solution)
	res.Changed = kFlipLocalSearch(s)
}

// mutateFlip flips k randomly chosen bits, per binStringSol::mutate_flip.
func mutateFlip(s *Solution, k int) {
	for i := 0; i < k; i++ {
		idx := s.rnd.Intn(len(s.Bits))
		s.Bits[idx] = !s.Bits[idx]
	}
	s.Invalidate()
}

// ShakeFlipK is MAXSATShakingMethod::run: flip k random bits.
func ShakeFlipK(k int) method.Func {
	return func(target solution.Solution, ctx *method.Context, res *method.Result) {
		s := target.(*Solution)
		mutateFlip(s, k)
		res.Changed = k > 0
	}
}
