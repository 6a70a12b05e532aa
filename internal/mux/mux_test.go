package mux

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanc577/dash-archiver/internal/direrr"
)

func TestNaturalLess_OrdersNumericallyNotLexically(t *testing.T) {
	names := []string{"10.m4v", "2.m4v", "1.m4v", "20.m4v", "3.m4v"}
	sort.Slice(names, func(i, j int) bool { return naturalLess(names[i], names[j]) })
	assert.Equal(t, []string{"1.m4v", "2.m4v", "3.m4v", "10.m4v", "20.m4v"}, names)
}

func TestNaturalLess_StableOnEqualNumericRuns(t *testing.T) {
	assert.False(t, naturalLess("007.m4v", "7.m4v"))
	assert.False(t, naturalLess("7.m4v", "007.m4v"))
}

func TestNaturalSortedGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"10.m4v", "2.m4v", "1.m4v"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	got, err := naturalSortedGlob(dir, "*.m4v")
	require.NoError(t, err)
	want := []string{
		filepath.Join(dir, "1.m4v"),
		filepath.Join(dir, "2.m4v"),
		filepath.Join(dir, "10.m4v"),
	}
	assert.Equal(t, want, got)
}

func TestConcat_PreservesOrderAndBytes(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("AAA"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("BBB"), 0o644))

	dest := filepath.Join(dir, "out")
	require.NoError(t, concat([]string{a, b}, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("AAABBB"), got)
}

func TestMerge_FailsWhenNoVideoSegments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "segments"), 0o755))

	_, err := Merge(context.Background(), dir)
	assert.True(t, direrr.Is(err, direrr.MissingInit))
}

func TestMerge_FailsWhenNoAudioSegments(t *testing.T) {
	dir := t.TempDir()
	segDir := filepath.Join(dir, "segments")
	require.NoError(t, os.MkdirAll(segDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(segDir, "1.m4v"), []byte("v"), 0o644))

	_, err := Merge(context.Background(), dir)
	assert.True(t, direrr.Is(err, direrr.MissingInit))
}
