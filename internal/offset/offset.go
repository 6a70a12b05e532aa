// Package offset implements the adaptive candidate generator the
// past-recovery engine drives (§4.2): a deterministic, lazy producer
// of candidate positive integer deltas, seeded with the
// most-frequently-observed deltas first and widened outward by an
// increasing ± offset until max_diff is exceeded.
package offset

// Generator produces candidate deltas one at a time via Next. It is
// single-use: once exhausted it stays exhausted.
type Generator struct {
	seed    []int
	offsets []int
	oi, si  int
	visited map[int]bool
}

// New builds a Generator over seed (an ordered list of preferred
// deltas, duplicates removed, order otherwise preserved) bounded to
// ±maxDiff around each seed entry.
//
// Offsets are visited in the order 0, -1, +1, -2, +2, …, -maxDiff,
// +maxDiff; for each offset every seed entry is tried in order before
// the offset changes. This guarantees the "priority" property: the
// first len(seed) values emitted (after internal dedup) are exactly
// seed's unique positive entries, in order — the offset-0 pass.
func New(maxDiff int, seed []int) *Generator {
	g := &Generator{visited: make(map[int]bool)}

	seen := make(map[int]bool, len(seed))
	for _, s := range seed {
		if seen[s] {
			continue
		}
		seen[s] = true
		g.seed = append(g.seed, s)
	}

	g.offsets = append(g.offsets, 0)
	for m := 1; m <= maxDiff; m++ {
		g.offsets = append(g.offsets, -m, m)
	}

	return g
}

// Next returns the next unvisited strictly-positive candidate, or
// (0, false) once every offset/seed combination has been exhausted.
func (g *Generator) Next() (int, bool) {
	for g.oi < len(g.offsets) {
		if len(g.seed) == 0 {
			return 0, false
		}
		if g.si >= len(g.seed) {
			g.si = 0
			g.oi++
			continue
		}

		candidate := g.seed[g.si] + g.offsets[g.oi]
		g.si++

		if candidate <= 0 || g.visited[candidate] {
			continue
		}
		g.visited[candidate] = true
		return candidate, true
	}
	return 0, false
}

// Collect drains the generator into a slice. Intended for tests and
// small max_diff values; production code should call Next in a loop
// so it can stop early.
func Collect(g *Generator) []int {
	var out []int
	for {
		v, ok := g.Next()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}
