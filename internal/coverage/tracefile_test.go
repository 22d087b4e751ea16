package coverage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRecord(t *testing.T) {
	stats := newLineStats(5)
	stats[2] = 0
	stats[4] = 3

	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, "/src/a.lua", stats))

	assert.Equal(t, "SF:/src/a.lua\n"+
		"FNF:0\nFNH:0\nBRF:0\nBRH:0\n"+
		"DA:2,0\n"+
		"DA:4,3\n"+
		"LH:1\nLF:2\n"+
		"end_of_record\n", buf.String())
}

func TestPerFileTracefiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.lua")
	b := filepath.Join(dir, "b.lua")
	require.NoError(t, os.WriteFile(a+".info", []byte("stale\n"), 0o644))

	w, err := NewTracefileWriter("")
	require.NoError(t, err)

	stats := newLineStats(1)
	stats[1] = 1
	require.NoError(t, w.WriteFile(a, stats))
	require.NoError(t, w.WriteFile(b, stats))
	require.NoError(t, w.Close())

	assert.Equal(t, []string{a + ".info", b + ".info"}, w.Written())

	got, err := os.ReadFile(a + ".info")
	require.NoError(t, err)
	assert.NotContains(t, string(got), "stale")
	assert.Contains(t, string(got), "SF:"+a+"\n")
	assert.NotContains(t, string(got), "SF:"+b)
}

func TestSingleFileTruncatesOnce(t *testing.T) {
	out := filepath.Join(t.TempDir(), "all.info")
	require.NoError(t, os.WriteFile(out, []byte("stale\n"), 0o644))

	w, err := NewTracefileWriter(out)
	require.NoError(t, err)

	stats := newLineStats(1)
	require.NoError(t, w.WriteFile("/src/a.lua", stats))
	require.NoError(t, w.WriteFile("/src/b.lua", stats))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(got), "stale")
	assert.Equal(t, 2, bytes.Count(got, []byte("end_of_record\n")))
	assert.Equal(t, []string{out}, w.Written())
}

func TestSingleFileOpenError(t *testing.T) {
	_, err := SingleFile(filepath.Join(t.TempDir(), "missing", "all.info"))
	assert.Error(t, err)
}
