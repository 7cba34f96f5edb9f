package param

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesParameterTable(t *testing.T) {
	c := Default()
	assert.Equal(t, -1, c.TIter)
	assert.Equal(t, -1, c.TCIter)
	assert.True(t, c.Maxi)
	assert.Equal(t, 100, c.PopSize)
	assert.Equal(t, 1, c.SchThreads)
	assert.True(t, c.SchLIRep)
	assert.Equal(t, "@", c.OName)
}

func TestBindFlagsRoundTrips(t *testing.T) {
	c := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.BindFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--titer", "500",
		"--schthreads", "4",
		"--schsync",
		"--seed", "42",
		"--oname", "run1",
	}))

	assert.Equal(t, 500, c.TIter)
	assert.Equal(t, 4, c.SchThreads)
	assert.True(t, c.SchSync)
	assert.Equal(t, int64(42), c.Seed)
	assert.Equal(t, "run1", c.OName)
}

func TestNoteTObjProvidedTracksExplicitFlag(t *testing.T) {
	c := Default()
	assert.False(t, c.HasTObj)
	c.NoteTObjProvided(true)
	assert.True(t, c.HasTObj)
}

func TestExpandArgFilesInlinesFileContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "args.txt")
	require.NoError(t, os.WriteFile(path, []byte("--titer 200\n--seed 7"), 0o644))

	out, err := ExpandArgFiles([]string{"--maxi", "10", "@" + path, "--schsync"})
	require.NoError(t, err)
	assert.Equal(t, []string{"--maxi", "10", "--titer", "200", "--seed", "7", "--schsync"}, out)
}

func TestExpandArgFilesRecursesNestedFiles(t *testing.T) {
	dir := t.TempDir()
	inner := filepath.Join(dir, "inner.txt")
	outer := filepath.Join(dir, "outer.txt")
	require.NoError(t, os.WriteFile(inner, []byte("--seed 9"), 0o644))
	require.NoError(t, os.WriteFile(outer, []byte("--titer 50 @"+inner), 0o644))

	out, err := ExpandArgFiles([]string{"@" + outer})
	require.NoError(t, err)
	assert.Equal(t, []string{"--titer", "50", "--seed", "9"}, out)
}

func TestExpandArgFilesMissingFileErrors(t *testing.T) {
	_, err := ExpandArgFiles([]string{"@/nonexistent/path/args.txt"})
	assert.Error(t, err)
}

func TestLoadYAMLOverlaysOnlyPresentFields(t *testing.T) {
	c := Default()
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("titer: 999\nschthreads: 8\n"), 0o644))

	require.NoError(t, LoadYAML(c, path))
	assert.Equal(t, 999, c.TIter)
	assert.Equal(t, 8, c.SchThreads)
	// Fields absent from the YAML keep their defaults.
	assert.Equal(t, 100, c.PopSize)
}

func TestLoadYAMLMissingFileErrors(t *testing.T) {
	c := Default()
	err := LoadYAML(c, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
