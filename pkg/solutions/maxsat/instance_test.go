package maxsat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCNF(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inst.cnf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesHeaderAndClauses(t *testing.T) {
	path := writeCNF(t, "c a comment\np cnf 3 2\n1 -2 0\n-1 2 3 0\n")
	inst, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, inst.NVars)
	require.Len(t, inst.Clauses, 2)
	assert.Equal(t, []int{1, -2}, inst.Clauses[0])
	assert.Equal(t, []int{-1, 2, 3}, inst.Clauses[1])
}

func TestLoadSkipsBlankAndCommentLines(t *testing.T) {
	path := writeCNF(t, "c header\n\nc more comments\np cnf 2 1\n\n1 2 0\n")
	inst, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, inst.NVars)
	require.Len(t, inst.Clauses, 1)
}

func TestLoadSingleLiteralClause(t *testing.T) {
	path := writeCNF(t, "p cnf 1 1\n1 0\n")
	inst, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, inst.Clauses[0])
}

func TestLoadMissingHeaderErrors(t *testing.T) {
	path := writeCNF(t, "1 2 0\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMalformedHeaderErrors(t *testing.T) {
	path := writeCNF(t, "p cnf notanumber 2\n1 0\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadLiteralOutOfRangeErrors(t *testing.T) {
	path := writeCNF(t, "p cnf 2 1\n5 0\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadClauseCountMismatchErrors(t *testing.T) {
	path := writeCNF(t, "p cnf 2 2\n1 2 0\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cnf"))
	assert.Error(t, err)
}

func TestStringSummarizesInstance(t *testing.T) {
	inst := &Instance{NVars: 3, Clauses: [][]int{{1, 2}, {-1, 3}}}
	assert.Contains(t, inst.String(), "vars=3")
	assert.Contains(t, inst.String(), "clauses=2")
}
