// Package solution defines the contract that every problem-specific
// candidate solution must satisfy to be driven by the scheduler packages.
package solution

import (
	"io"
	"math/rand"
)

// epsilon guards "strictly better" comparisons against floating-point noise.
const epsilon = 1e-5

// Solution is the abstract contract a problem implementation must satisfy.
// Concrete types (bitstring, permutation, maxsat, ...) embed a value of
// their own payload and implement these methods; the scheduler never
// inspects the payload directly.
type Solution interface {
	// CreateUninitialized returns a new, not-yet-initialized solution of the
	// same concrete type and size as the receiver (same problem parameters).
	CreateUninitialized() Solution
	// Clone returns an independent deep copy of the receiver.
	Clone() Solution
	// CopyFrom overwrites the receiver with the content of src, which must
	// be of the same concrete type.
	CopyFrom(src Solution)
	// Equals reports whether the receiver and other represent the same
	// candidate. Used for duplicate elimination; need not be exhaustive
	// across unrelated concrete types.
	Equals(other Solution) bool
	// Dist returns a metric distance between the receiver and other.
	Dist(other Solution) float64
	// Initialize (re)initializes the receiver, usually randomly. count is
	// the solution's position within the population being built, starting
	// at 0, for implementations that vary initialization by position.
	Initialize(count int)
	// Objective returns the (possibly cached) objective value, evaluating
	// it only if Invalidate was called since the last evaluation.
	Objective() float64
	// Invalidate marks the cached objective value stale; mutating methods
	// must call this whenever the genotype changes.
	Invalidate()
	// HashValue returns a value such that equal solutions hash equally;
	// collisions between unequal solutions are acceptable.
	HashValue() uint64
	// Write renders the solution in a human-readable textual form.
	Write(w io.Writer, detailed int) error
	// Save persists the solution to path. path == "NULL" means discard.
	Save(path string) error
	// Load restores the solution from path, previously written by Save.
	Load(path string) error
}

// Reseedable is implemented by concrete solution types whose mutating
// methods (Initialize, construction, shaking) draw from an embedded
// *rand.Rand. A freshly cloned solution otherwise shares its source's RNG
// pointer; the worker pool reseeds every per-worker copy so concurrent
// workers never share one *rand.Rand across goroutines.
type Reseedable interface {
	Reseed(rnd *rand.Rand)
}

// Better reports whether a is strictly better than b under the given
// maximization sense, guarded by epsilon.
func Better(a, b Solution, maximize bool) bool {
	if maximize {
		return a.Objective() > b.Objective()+epsilon
	}
	return a.Objective() < b.Objective()-epsilon
}

// Worse reports whether a is strictly worse than b under the given
// maximization sense, guarded by epsilon.
func Worse(a, b Solution, maximize bool) bool {
	if maximize {
		return a.Objective() < b.Objective()-epsilon
	}
	return a.Objective() > b.Objective()+epsilon
}
