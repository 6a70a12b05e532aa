package archivestate

import "sort"

// histogram is an insertion-ordered multiset of signed deltas. It
// backs State.deltas: Go's map iteration order is randomized, but the
// past-recovery engine's seed list must break count ties by a stable,
// reproducible order (spec: "ties broken by insertion/iteration
// order"), so insertion order is tracked explicitly alongside the
// counts.
type histogram struct {
	counts map[int]int
	order  []int
}

func newHistogram() *histogram {
	return &histogram{counts: make(map[int]int)}
}

// seed pre-populates the histogram with a prior count, recording
// insertion order for keys not yet seen.
func (h *histogram) seed(delta, count int) {
	if _, ok := h.counts[delta]; !ok {
		h.order = append(h.order, delta)
	}
	h.counts[delta] += count
}

// increment records one more observed occurrence of delta.
func (h *histogram) increment(delta int) {
	h.seed(delta, 1)
}

// clone returns an independent copy, safe to mutate outside the
// state's lock.
func (h *histogram) clone() *histogram {
	c := &histogram{
		counts: make(map[int]int, len(h.counts)),
		order:  append([]int(nil), h.order...),
	}
	for k, v := range h.counts {
		c.counts[k] = v
	}
	return c
}

// sortedByCountDesc returns every observed delta ordered by count
// descending, ties broken by first-insertion order.
func (h *histogram) sortedByCountDesc() []int {
	out := append([]int(nil), h.order...)
	sort.SliceStable(out, func(i, j int) bool {
		return h.counts[out[i]] > h.counts[out[j]]
	})
	return out
}
