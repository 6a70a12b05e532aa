// Package archivestate holds the single piece of shared mutable state
// in the archiver: per-stream init blobs, the set of downloaded
// segment timestamps, the delta histogram that seeds the adaptive
// offset search, and the back-PTS continuity watermark. It is created
// once per run, mutated under one mutex, and discarded when the run
// completes — there is no persistence (§3 lifecycle).
package archivestate

import (
	"sync"

	"github.com/evanc577/dash-archiver/internal/stream"
)

// Prior seed values for the delta histogram (§3): a strong prior on
// ~2000-unit spacing, a secondary ~100-unit prior, and a spread of
// minor-drift candidates around each integer multiple of 100 between
// 1800 and 2200.
const (
	priorPrimaryDelta   = 2000
	priorPrimaryCount   = 10
	priorSecondaryDelta = 100
	priorSecondaryCount = 5
)

// State is the archiver's shared, mutex-guarded archive state (§3).
// All per-stream fields are keyed by stream.Kind; both streams share
// one mutex, matching §5's "exactly one" shared-mutable-state rule.
type State struct {
	mu sync.Mutex

	initBlob   map[stream.Kind][]byte
	downloaded map[stream.Kind]map[uint64]struct{}
	deltas     map[stream.Kind]*histogram
	backPTS    map[stream.Kind]int64
	hasBackPTS map[stream.Kind]bool
}

// New creates a fresh State with both streams' delta histograms
// seeded with the default prior.
func New() *State {
	s := &State{
		initBlob:   make(map[stream.Kind][]byte),
		downloaded: make(map[stream.Kind]map[uint64]struct{}),
		deltas:     make(map[stream.Kind]*histogram),
		backPTS:    make(map[stream.Kind]int64),
		hasBackPTS: make(map[stream.Kind]bool),
	}
	for _, k := range stream.All() {
		s.downloaded[k] = make(map[uint64]struct{})
		s.deltas[k] = seededHistogram()
	}
	return s
}

func seededHistogram() *histogram {
	h := newHistogram()
	h.seed(priorPrimaryDelta, priorPrimaryCount)
	h.seed(priorSecondaryDelta, priorSecondaryCount)
	for x := 18; x <= 22; x++ {
		h.seed(100*x, 1)
		h.seed(100*x+33, 1)
		h.seed(100*x+67, 1)
	}
	return h
}

// SetInit stores the initialization blob for k, satisfying invariant 1
// (init populated before any segment write). Safe to call more than
// once; later calls overwrite.
func (s *State) SetInit(k stream.Kind, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initBlob[k] = data
}

// Init returns the cached initialization blob for k, if any.
func (s *State) Init(k stream.Kind) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.initBlob[k]
	return data, ok
}

// HasDownloaded reports whether timestamp t has already been written
// for stream k.
func (s *State) HasDownloaded(k stream.Kind, t uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.downloaded[k][t]
	return ok
}

// MarkDownloaded records t as downloaded for stream k. downloaded[k]
// only ever grows (invariant 2).
func (s *State) MarkDownloaded(k stream.Kind, t uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloaded[k][t] = struct{}{}
}

// MinDownloaded returns the smallest downloaded timestamp for k.
func (s *State) MinDownloaded(k stream.Kind) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.downloaded[k]
	if len(set) == 0 {
		return 0, false
	}
	min, first := uint64(0), true
	for t := range set {
		if first || t < min {
			min = t
			first = false
		}
	}
	return min, true
}

// MaxDownloaded returns the largest downloaded timestamp for k.
func (s *State) MaxDownloaded(k stream.Kind) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.downloaded[k]
	if len(set) == 0 {
		return 0, false
	}
	max, first := uint64(0), true
	for t := range set {
		if first || t > max {
			max = t
			first = false
		}
	}
	return max, true
}

// SeedCandidates returns, for stream k, every observed delta ordered
// by count descending (ties broken by insertion order) — the seed
// list §4.1 step 2 feeds to the offset generator. The returned slice
// is an independent snapshot; the caller may sort/inspect it outside
// the lock.
func (s *State) SeedCandidates(k stream.Kind) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deltas[k].clone().sortedByCountDesc()
}

// RecordDelta increments stream k's delta histogram at x by one,
// recording an observed successful past-fetch delta (invariant 5:
// only successful probes update the histogram).
func (s *State) RecordDelta(k stream.Kind, x int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deltas[k].increment(x)
}

// BackPTS returns the current back-PTS watermark for k, if one has
// been observed yet.
func (s *State) BackPTS(k stream.Kind) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pts, ok := s.hasBackPTS[k]
	return s.backPTS[k], pts
}

// UpdateBackPTS lowers the back-PTS watermark for k to min(current,
// ptsStart), or sets it if this is the first observation. back_pts is
// non-increasing over the run (invariant 6).
func (s *State) UpdateBackPTS(k stream.Kind, ptsStart int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasBackPTS[k] || ptsStart < s.backPTS[k] {
		s.backPTS[k] = ptsStart
		s.hasBackPTS[k] = true
	}
}
