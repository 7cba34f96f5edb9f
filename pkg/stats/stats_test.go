package stats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAccumulatesOnlyOnImprovement(t *testing.T) {
	tbl := New([]string{"m0", "m1"})
	tbl.Update(0, 0.1, true, true, 5.0)
	tbl.Update(0, 0.2, true, false, 0.0)
	tbl.Update(1, 0.3, false, false, 0.0)

	snap := tbl.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(2), snap[0].NIter)
	assert.Equal(t, int64(1), snap[0].NSuccess)
	assert.Equal(t, 5.0, snap[0].SumGain)
	assert.InDelta(t, 0.3, snap[0].TotTime, 1e-9)

	assert.Equal(t, int64(1), snap[1].NIter)
	assert.Equal(t, int64(0), snap[1].NSuccess)
}

func TestIterationCounterMonotonic(t *testing.T) {
	tbl := New([]string{"m0"})
	assert.Equal(t, int64(0), tbl.Iteration())
	assert.Equal(t, int64(1), tbl.IncIteration())
	assert.Equal(t, int64(2), tbl.IncIteration())
	assert.Equal(t, int64(2), tbl.Iteration())
}

func TestAddNetTimeDoesNotAffectIterCount(t *testing.T) {
	tbl := New([]string{"m0"})
	tbl.AddNetTime(0, 1.5)
	snap := tbl.Snapshot()
	assert.Equal(t, int64(0), snap[0].NIter)
	assert.InDelta(t, 1.5, snap[0].TotNetTime, 1e-9)
}

func TestWriteReportIncludesTotalsRow(t *testing.T) {
	tbl := New([]string{"construct", "shake"})
	tbl.Update(0, 1.0, true, true, 2.0)
	tbl.Update(1, 2.0, true, false, 0.0)

	var b strings.Builder
	require.NoError(t, WriteReport(&b, tbl.Snapshot(), 3.0))

	out := b.String()
	assert.Contains(t, out, "method\titer\tsucc")
	assert.Contains(t, out, "construct")
	assert.Contains(t, out, "shake")
	assert.Contains(t, out, "TOTAL\t2\t1")
}
