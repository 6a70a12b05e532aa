// Package live implements the live-tracking loop (§4.5): polls the
// manifest on a fixed cadence, downloads newly-listed segment
// timestamps for both streams concurrently, and exits once the
// broadcast-ended flag is observed.
package live

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evanc577/dash-archiver/internal/archivestate"
	"github.com/evanc577/dash-archiver/internal/logger"
	"github.com/evanc577/dash-archiver/internal/manifest"
	"github.com/evanc577/dash-archiver/internal/stream"
)

// interval is the fixed poll cadence (§4.5: one tick per second).
const interval = time.Second

// ManifestClient is the subset of *manifest.Client the live loop
// depends on.
type ManifestClient interface {
	Fetch(ctx context.Context, rawURL string) (*manifest.Snapshot, error)
}

// Fetcher is the subset of *fetch.Fetcher the live loop drives.
type Fetcher interface {
	Fetch(ctx context.Context, k stream.Kind, t uint64, checkPTS bool, url, basename string) error
}

// Run polls mpdURL until the manifest reports the broadcast finished,
// downloading any segment newly listed in each tick's timeline.
//
// Cadence is fixed-delay, not fixed-rate: each wait starts only after
// the previous tick's manifest fetch and downloads have finished, via
// a timer reset at the end of the loop body rather than a
// time.Ticker. A time.Ticker would instead buffer one pending tick
// during a slow iteration and fire it immediately afterward, which is
// a fixed-rate-with-drop schedule, not the "next tick one interval
// after the current one completes" cadence §4.5 documents.
func Run(ctx context.Context, log logger.Logger, state *archivestate.State, mc ManifestClient, f Fetcher, mpdURL string) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		snap, err := mc.Fetch(ctx, mpdURL)
		if err != nil {
			return err
		}

		if err := tick(ctx, log, state, f, snap); err != nil {
			return err
		}

		if snap.Finished {
			log.Infof("broadcast ended, live-tracking loop exiting")
			return nil
		}

		timer.Reset(interval)
	}
}

// tick downloads every newly-listed segment for both streams
// concurrently and emits the overlap warning when the sliding window
// appears to have advanced past a prior high-water mark.
func tick(ctx context.Context, log logger.Logger, state *archivestate.State, f Fetcher, snap *manifest.Snapshot) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, k := range stream.All() {
		k := k
		prevMax, hadPrevMax := state.MaxDownloaded(k)

		g.Go(func() error {
			rep := snap.Representation(k)

			stillListed := false
			for _, seg := range rep.Timeline {
				if seg.Time == prevMax {
					stillListed = true
				}
				if state.HasDownloaded(k, seg.Time) {
					continue
				}

				url, err := snap.SegmentURL(k, seg.Time)
				if err != nil {
					return err
				}
				basename, err := manifest.LastPathSegment(url)
				if err != nil {
					return err
				}
				if err := f.Fetch(gctx, k, seg.Time, false, url, basename); err != nil {
					return err
				}
				// §4.5 step 4: insert t into downloaded[k] directly — this
				// loop owns that bookkeeping rather than relying on it as a
				// side effect of a particular Fetcher implementation.
				state.MarkDownloaded(k, seg.Time)
			}

			if hadPrevMax && !stillListed {
				log.Warnf("possible missed live segment for %s: timestamp %d fell out of the manifest window before being re-checked", k, prevMax)
			}
			return nil
		})
	}

	return g.Wait()
}
