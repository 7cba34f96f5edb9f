package mhlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteHeaderIsIdempotent(t *testing.T) {
	var b bytes.Buffer
	w := New(&b, Options{Freq: Every, IsTerminal: true})
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Flush())
	assert.Equal(t, 1, strings.Count(b.String(), "iter\t"))
}

func TestFrequencyZeroDisablesLogging(t *testing.T) {
	var b bytes.Buffer
	w := New(&b, Options{Freq: 0, IsTerminal: true})
	for i := int64(0); i < 5; i++ {
		require.NoError(t, w.WriteEntry(Entry{Iteration: i, BestObj: float64(i)}, false))
	}
	require.NoError(t, w.Flush())
	assert.Empty(t, b.String())
}

func TestEveryFrequencyWritesEveryIteration(t *testing.T) {
	var b bytes.Buffer
	w := New(&b, Options{Freq: Every, ChangeOnly: Always, IsTerminal: true})
	for i := int64(0); i < 5; i++ {
		require.NoError(t, w.WriteEntry(Entry{Iteration: i, BestObj: float64(i)}, false))
	}
	require.NoError(t, w.Flush())
	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	assert.Len(t, lines, 5)
}

func TestChangeOnlySuppressesUnchangedObjective(t *testing.T) {
	var b bytes.Buffer
	w := New(&b, Options{Freq: Every, ChangeOnly: OnChangeOnly, IsTerminal: true})
	require.NoError(t, w.WriteEntry(Entry{Iteration: 0, BestObj: 5}, false))
	require.NoError(t, w.WriteEntry(Entry{Iteration: 1, BestObj: 5}, false))
	require.NoError(t, w.WriteEntry(Entry{Iteration: 2, BestObj: 6}, false))
	require.NoError(t, w.Flush())
	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "5")
	assert.Contains(t, lines[1], "6")
}

func TestForceAlwaysWritesRegardlessOfCadence(t *testing.T) {
	var b bytes.Buffer
	w := New(&b, Options{Freq: Every, ChangeOnly: OnChangeOnly, IsTerminal: true})
	require.NoError(t, w.WriteEntry(Entry{Iteration: 0, BestObj: 5}, false))
	require.NoError(t, w.WriteEntry(Entry{Iteration: 1, BestObj: 5}, true))
	require.NoError(t, w.Flush())
	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	assert.Len(t, lines, 2)
}

func TestGeometricCadenceMatchesExpectedGenerations(t *testing.T) {
	w := New(&bytes.Buffer{}, Options{Freq: Geometric, ChangeOnly: Always})
	expectTrue := map[int64]bool{0: true, 1: true, 2: true, 5: true, 10: true, 20: true, 50: true, 100: true}
	for gen := int64(0); gen <= 100; gen++ {
		got := w.shouldWrite(gen, 1.0, false)
		if expectTrue[gen] {
			assert.Truef(t, got, "expected gen %d to be written", gen)
		} else {
			assert.Falsef(t, got, "expected gen %d to be suppressed", gen)
		}
	}
}

func TestWriteEmptyAlwaysFlushes(t *testing.T) {
	var b bytes.Buffer
	w := New(&b, Options{Freq: 0})
	require.NoError(t, w.WriteEmpty())
	assert.Equal(t, "\n", b.String())
}
