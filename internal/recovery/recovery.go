// Package recovery implements the past-recovery engine (§4.1): it
// walks backwards from a stream's oldest known segment toward the
// broadcast's first frame, driving the offset generator with the
// shared delta histogram and committing each successful probe back
// into it.
package recovery

import (
	"context"
	"errors"

	"github.com/evanc577/dash-archiver/internal/archivestate"
	"github.com/evanc577/dash-archiver/internal/direrr"
	"github.com/evanc577/dash-archiver/internal/logger"
	"github.com/evanc577/dash-archiver/internal/manifest"
	"github.com/evanc577/dash-archiver/internal/offset"
	"github.com/evanc577/dash-archiver/internal/stream"
)

// maxDiff bounds the ± search radius the offset generator explores
// around each seeded delta (§4.2 production note: 10 empirically
// suffices for the origin's segment-duration quantization).
const maxDiff = 10

// Fetcher is the subset of *fetch.Fetcher the recovery engine drives.
// Declared as an interface here so tests can substitute a stub.
type Fetcher interface {
	Fetch(ctx context.Context, k stream.Kind, t uint64, checkPTS bool, url, basename string) error
}

// Run walks stream k backwards from state's current minimum
// downloaded timestamp until it reaches startFrame, using snap to
// resolve segment URLs and basenames. It returns nil once startFrame
// is reached.
func Run(ctx context.Context, log logger.Logger, state *archivestate.State, f Fetcher, snap *manifest.Snapshot, k stream.Kind, startFrame uint64) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		latestT, ok := state.MinDownloaded(k)
		if !ok {
			return errors.New("recovery: no downloaded segments to walk back from")
		}
		if latestT <= startFrame {
			return nil
		}

		progressed, err := pass(ctx, log, state, f, snap, k, latestT, startFrame)
		if err != nil {
			return err
		}
		if progressed {
			// The histogram changed; restart from step 1 with a freshly
			// sorted seed list (§4.1 step 6, success case).
			continue
		}
		// §4.1 step 7: the generator exhausted without progress. Retry
		// indefinitely — a future histogram update may reorder the seed
		// list and probe different offsets first. Only step 1 (reaching
		// startFrame) or an unrecoverable error ends the outer loop.
	}
}

// pass drives one full sweep of the offset generator over the current
// seed list, returning true if at least one segment was downloaded
// during the sweep.
func pass(ctx context.Context, log logger.Logger, state *archivestate.State, f Fetcher, snap *manifest.Snapshot, k stream.Kind, latestT, startFrame uint64) (bool, error) {
	seed := state.SeedCandidates(k)
	gen := offset.New(maxDiff, seed)

	var lowerBound uint64
	progressed := false

	for {
		if err := ctx.Err(); err != nil {
			return progressed, err
		}

		x, ok := gen.Next()
		if !ok {
			return progressed, nil
		}

		delta := uint64(x)
		if delta > latestT {
			continue
		}
		t := latestT - delta
		if t < lowerBound {
			continue
		}

		url, err := snap.SegmentURL(k, t)
		if err != nil {
			return progressed, err
		}
		basename, err := manifest.LastPathSegment(url)
		if err != nil {
			return progressed, err
		}

		err = f.Fetch(ctx, k, t, true, url, basename)
		switch {
		case err == nil:
			state.RecordDelta(k, x)
			log.Debugf("recovered %s segment at t=%d (delta=%d)", k, t, x)
			return true, nil

		case direrr.Is(err, direrr.StatusNotFound):
			continue

		case direrr.Is(err, direrr.PtsTooEarly):
			lowerBound = t
			continue

		default:
			log.Warnf("recovery: transient error fetching %s at t=%d: %v", k, t, err)
			return progressed, nil
		}
	}
}
