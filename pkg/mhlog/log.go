// Package mhlog implements the scheduler's buffered, mutex-guarded
// iteration log: a tab-separated stream of (iteration, best objective,
// population statistics) rows, written under a cadence policy independent
// of the ops logger in pkg/opslog.
package mhlog

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// Frequency selects the cadence policy for writeLogEntry (mirrors the
// mhlib "lfreq" parameter).
type Frequency int

const (
	// Geometric writes at iteration 0 and then at 1,2,5,10,20,50,... (the
	// mhlib lfreq==-1 cadence).
	Geometric Frequency = -1
	// Every writes every iteration.
	Every Frequency = 1
)

// ChangeOnly selects when a non-forced entry is suppressed despite the
// frequency policy allowing it (mirrors "lchonly").
type ChangeOnly int

const (
	// Always writes every entry the frequency policy allows.
	Always ChangeOnly = 0
	// OnChangeOnly suppresses entries whose best objective did not change
	// since the last written entry.
	OnChangeOnly ChangeOnly = 1
	// OnChangeOrFirst is OnChangeOnly but also forces the very first entry
	// after a change in interval, matching mhlib's lchonly==2 nuance.
	OnChangeOrFirst ChangeOnly = 2
)

// Entry is one row of data the Writer renders as a log line.
type Entry struct {
	Iteration int64
	BestObj   float64
	Worst     float64
	Mean      float64
	StdDev    float64
	DupCount  int64 // -1 to omit the column
	Elapsed   float64
	Method    string
}

// Writer accumulates entries into an in-memory buffer and flushes them to
// the underlying stream once BufferSize entries have accumulated, or
// immediately if the stream is a terminal (mirrors logging::finishEntry /
// logging::flush in mh_log.C).
type Writer struct {
	mu sync.Mutex

	freq       Frequency
	changeOnly ChangeOnly
	bufferSize int64
	isTerminal bool
	withDup    bool
	withTime   bool

	out *bufio.Writer

	headerWritten bool
	prevObj       float64
	havePrev      bool
	pending       []string
}

// Options configures a Writer.
type Options struct {
	Freq       Frequency
	ChangeOnly ChangeOnly
	BufferSize int64 // number of buffered entries that triggers a flush, minimum 1
	IsTerminal bool  // true flushes after every entry (stdout semantics)
	WithDup    bool  // include the duplicate-elimination column
	WithTime   bool  // include the elapsed-time column
}

// New creates a Writer over w.
func New(w io.Writer, opts Options) *Writer {
	buf := opts.BufferSize
	if buf < 1 {
		buf = 1
	}
	return &Writer{
		freq:       opts.Freq,
		changeOnly: opts.ChangeOnly,
		bufferSize: buf,
		isTerminal: opts.IsTerminal,
		withDup:    opts.WithDup,
		withTime:   opts.WithTime,
		out:        bufio.NewWriter(w),
	}
}

// WriteHeader writes the column header row once.
func (w *Writer) WriteHeader() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.headerWritten || w.freq == 0 {
		return nil
	}
	w.headerWritten = true
	cols := "iter\tbest\tworst\tmean\tstddev"
	if w.withDup {
		cols += "\tdupcount"
	}
	if w.withTime {
		cols += "\ttime"
	}
	cols += "\tmethod"
	_, err := fmt.Fprintln(w.out, cols)
	return err
}

// shouldWrite implements the mhlib logging::shouldWrite cadence exactly:
// frequency gating first, then the change-only suppression.
func (w *Writer) shouldWrite(gen int64, bestObj float64, force bool) bool {
	if w.freq == 0 {
		return false
	}
	if force {
		w.prevObj = bestObj
		w.havePrev = true
		return true
	}
	if w.changeOnly == OnChangeOrFirst && (!w.havePrev || bestObj != w.prevObj) {
		w.prevObj = bestObj
		w.havePrev = true
		return true
	}
	wasFirst := !w.havePrev
	if !w.havePrev {
		w.prevObj = bestObj
		w.havePrev = true
	} else if w.changeOnly == OnChangeOnly && bestObj == w.prevObj {
		return false
	}
	if gen == 0 {
		w.prevObj = bestObj
		return true
	}
	if w.freq > 0 {
		if gen%int64(w.freq) == 0 {
			w.prevObj = bestObj
		} else {
			return false
		}
	}
	if w.freq == Geometric {
		for i := int64(1); i <= gen; i *= 10 {
			if gen == i || gen == i*2 || gen == i*5 {
				w.prevObj = bestObj
				return true
			}
		}
		return false
	}
	w.prevObj = bestObj
	_ = wasFirst
	return true
}

// WriteEntry appends one row, applying the cadence policy unless force is
// true (force is used for the very first and very last row of a run).
func (w *Writer) WriteEntry(e Entry, force bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.shouldWrite(e.Iteration, e.BestObj, force) {
		return nil
	}
	line := fmt.Sprintf("%07d\t%g\t%g\t%g\t%g", e.Iteration, e.BestObj, e.Worst, e.Mean, e.StdDev)
	if w.withDup {
		line += fmt.Sprintf("\t%d", e.DupCount)
	}
	if w.withTime {
		line += fmt.Sprintf("\t%.3f", e.Elapsed)
	}
	line += "\t" + e.Method
	w.pending = append(w.pending, line)
	if w.isTerminal || int64(len(w.pending)) >= w.bufferSize {
		if err := w.flushLocked(); err != nil {
			return err
		}
	}
	return nil
}

// WriteEmpty writes a blank separator row, used after a run finishes
// (mirrors logging::emptyEntry, e.g. between PBIG's population rounds).
func (w *Writer) WriteEmpty() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, "")
	return w.flushLocked()
}

// Flush forces any buffered rows to the underlying stream.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	for _, line := range w.pending {
		if _, err := fmt.Fprintln(w.out, line); err != nil {
			return err
		}
	}
	w.pending = w.pending[:0]
	return w.out.Flush()
}
