package offset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Priority(t *testing.T) {
	// The first len(seed) emissions (after internal dedup of the seed
	// itself) must be exactly the unique positive seed entries, in
	// order — the offset-0 pass.
	g := New(5, []int{2000, 2001, 2003})
	got := []int{}
	for i := 0; i < 3; i++ {
		v, ok := g.Next()
		require.True(t, ok)
		got = append(got, v)
	}
	assert.Equal(t, []int{2000, 2001, 2003}, got)
}

func TestNew_NoDuplicates(t *testing.T) {
	g := New(5, []int{2000, 2001, 2003})
	out := Collect(g)
	seen := make(map[int]bool, len(out))
	for _, v := range out {
		assert.False(t, seen[v], "duplicate candidate %d", v)
		seen[v] = true
	}
}

func TestNew_PositiveOnly(t *testing.T) {
	g := New(10, []int{2, 1})
	out := Collect(g)
	for _, v := range out {
		assert.Greater(t, v, 0)
	}
}

func TestNew_FiniteForFiniteSeed(t *testing.T) {
	g := New(5, []int{2000, 2001, 2003})
	out := Collect(g)
	assert.NotEmpty(t, out)
	// A further call after exhaustion keeps returning false.
	_, ok := g.Next()
	assert.False(t, ok)
}

func TestNew_WidensAroundEachSeed(t *testing.T) {
	// Every value within maxDiff of a seed entry, and not equal to any
	// other seed entry's own closer claim, eventually appears.
	g := New(2, []int{100})
	out := Collect(g)
	assert.ElementsMatch(t, []int{100, 99, 101, 98, 102}, out)
}

func TestNew_DedupesSeedItself(t *testing.T) {
	g := New(1, []int{50, 50, 51})
	out := Collect(g)
	assert.Equal(t, 50, out[0])
	assert.Equal(t, 51, out[1])
}

func TestCollect_EmptySeed(t *testing.T) {
	g := New(5, nil)
	out := Collect(g)
	assert.Empty(t, out)
}
