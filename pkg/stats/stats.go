// Package stats implements the per-method iteration/success/gain/time
// counters the scheduler accumulates, and their textual report.
package stats

import (
	"fmt"
	"io"
	"math"
	"sync"
)

// Counters holds one method's accumulated bookkeeping.
type Counters struct {
	Name      string
	NIter     int64
	NSuccess  int64
	SumGain   float64
	TotTime   float64 // wall or CPU seconds, per the scheduler's time mode
	TotNetTime float64 // time spent including unsuccessful/discarded calls
}

// Table is the scheduler's mutex-guarded array of per-method Counters,
// indexed by dense method-pool index (mirrors Scheduler::nIter/nSuccess/
// sumGain/totTime/totNetTime in mh_scheduler.C/.h).
type Table struct {
	mu       sync.Mutex
	counters []Counters
	nIteration int64
}

// New allocates a Table sized for n methods, with their registered names.
func New(names []string) *Table {
	t := &Table{counters: make([]Counters, len(names))}
	for i, n := range names {
		t.counters[i].Name = n
	}
	return t
}

// Update records one completed method call (§4.9 updateMethodStatistics).
func (t *Table) Update(idx int, methodTime float64, changed, improved bool, gain float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := &t.counters[idx]
	c.NIter++
	c.TotTime += methodTime
	c.TotNetTime += methodTime
	if improved {
		c.NSuccess++
		c.SumGain += math.Abs(gain)
	}
	_ = changed
}

// AddNetTime accounts method time in TotNetTime without a full statistics
// update (the net-time half of GVNS::updateMethodStatistics). The
// schedulers in this module record statistics only through Update.
func (t *Table) AddNetTime(idx int, methodTime float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters[idx].TotNetTime += methodTime
}

// IncIteration increments the scheduler-wide iteration counter and returns
// the new value.
func (t *Table) IncIteration() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nIteration++
	return t.nIteration
}

// Iteration returns the current scheduler-wide iteration counter.
func (t *Table) Iteration() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nIteration
}

// Snapshot returns a defensive copy of all counters for reporting.
func (t *Table) Snapshot() []Counters {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Counters, len(t.counters))
	copy(out, t.counters)
	return out
}

// WriteReport renders the tab-separated per-method statistics table
// followed by totals, matching Scheduler::printMethodStatistics /
// printStatistics in shape (method, applications, successes, success-rate,
// total-gain, avg-gain-per-success, total-time, relative-time).
func WriteReport(w io.Writer, snap []Counters, totalTime float64) error {
	if _, err := fmt.Fprintf(w, "method\titer\tsucc\tsucc-rate\tsum-gain\tavg-gain\ttot-time\trel-time\n"); err != nil {
		return err
	}
	var totIter, totSucc int64
	var totGain, totTime float64
	for _, c := range snap {
		rate := 0.0
		if c.NIter > 0 {
			rate = float64(c.NSuccess) / float64(c.NIter)
		}
		avgGain := 0.0
		if c.NSuccess > 0 {
			avgGain = c.SumGain / float64(c.NSuccess)
		}
		relTime := 0.0
		if totalTime > 0 {
			relTime = c.TotTime / totalTime
		}
		if _, err := fmt.Fprintf(w, "%s\t%d\t%d\t%.4f\t%.6g\t%.6g\t%.6f\t%.4f\n",
			c.Name, c.NIter, c.NSuccess, rate, c.SumGain, avgGain, c.TotTime, relTime); err != nil {
			return err
		}
		totIter += c.NIter
		totSucc += c.NSuccess
		totGain += c.SumGain
		totTime += c.TotTime
	}
	rate := 0.0
	if totIter > 0 {
		rate = float64(totSucc) / float64(totIter)
	}
	_, err := fmt.Fprintf(w, "TOTAL\t%d\t%d\t%.4f\t%.6g\t-\t%.6f\t1.0000\n", totIter, totSucc, rate, totGain, totTime)
	return err
}
