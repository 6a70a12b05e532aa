// Package fetch downloads a single segment, concatenates it onto its
// stream's cached init blob, writes it to disk, extracts its PTS via
// an external probe, and validates/updates the shared archive state
// (§4.3). It is the only component that performs the
// init-blob‖media-body write and the probe invocation.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/evanc577/dash-archiver/internal/archivestate"
	"github.com/evanc577/dash-archiver/internal/direrr"
	"github.com/evanc577/dash-archiver/internal/logger"
	"github.com/evanc577/dash-archiver/internal/probe"
	"github.com/evanc577/dash-archiver/internal/stream"
)

// Fetcher downloads segments into a directory, sharing one HTTP
// client and the run's archive state.
type Fetcher struct {
	httpClient *http.Client
	state      *archivestate.State
	logger     logger.Logger
	userAgent  string
	segmentDir string

	// probe is overridable in tests so they don't depend on a real
	// ffprobe binary being on PATH.
	probe func(ctx context.Context, buf []byte) (probe.PTS, error)
}

// New builds a Fetcher that writes into segmentDir (expected to
// already exist). It carries the same documented 5-second per-request
// timeout as the manifest client.
func New(state *archivestate.State, log logger.Logger, userAgent, segmentDir string) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		state:      state,
		logger:     log,
		userAgent:  userAgent,
		segmentDir: segmentDir,
		probe:      probe.Extract,
	}
}

// FetchInit downloads stream k's initialization segment, caches it in
// the shared state, and writes it to disk under its own basename.
// This must complete before any call to Fetch for the same stream
// (invariant 1).
func (f *Fetcher) FetchInit(ctx context.Context, k stream.Kind, url, basename string) error {
	body, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	f.state.SetInit(k, body)
	if err := f.writeFile(basename, body); err != nil {
		return err
	}
	f.logger.Debugf("cached %s init segment (%d bytes)", k, len(body))
	return nil
}

// Fetch downloads one media segment at timestamp t, concatenates it
// onto the cached init blob, writes it to disk, extracts its PTS, and
// — when checkPTS is set — validates it against the back-PTS
// watermark before marking t downloaded.
func (f *Fetcher) Fetch(ctx context.Context, k stream.Kind, t uint64, checkPTS bool, url, basename string) error {
	body, err := f.get(ctx, url)
	if err != nil {
		return err
	}

	initBlob, ok := f.state.Init(k)
	if !ok {
		return direrr.New(direrr.Other, "fetch", fmt.Errorf("no init segment cached for %s", k))
	}

	buffer := make([]byte, 0, len(initBlob)+len(body))
	buffer = append(buffer, initBlob...)
	buffer = append(buffer, body...)

	if err := f.writeFile(basename, buffer); err != nil {
		return err
	}

	pts, err := f.probe(ctx, buffer)
	if err != nil {
		return direrr.New(direrr.Other, "fetch", fmt.Errorf("probe segment at t=%d: %w", t, err))
	}

	if checkPTS {
		// §4.3 step 5: the documented match condition compares the
		// watermark against the candidate's duration (pts_end), not its
		// start — preserved exactly as specified rather than "fixed" to
		// compare against pts_start.
		target, haveTarget := f.state.BackPTS(k)
		if haveTarget && target != pts.DurationTS {
			return direrr.New(direrr.PtsTooEarly, "fetch",
				fmt.Errorf("t=%d: back_pts %d != duration_ts %d", t, target, pts.DurationTS))
		}
	}

	f.state.UpdateBackPTS(k, pts.Start)
	f.state.MarkDownloaded(k, t)
	return nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, direrr.New(direrr.Other, "fetch", fmt.Errorf("build request for %s: %w", url, err))
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, direrr.New(direrr.Other, "fetch", fmt.Errorf("GET %s: %w", url, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, direrr.New(direrr.StatusNotFound, "fetch", fmt.Errorf("GET %s: 404", url))
	case resp.StatusCode != http.StatusOK:
		return nil, direrr.New(direrr.Other, "fetch", fmt.Errorf("GET %s: status %d", url, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, direrr.New(direrr.Other, "fetch", fmt.Errorf("read body from %s: %w", url, err))
	}
	return body, nil
}

// writeFile writes buffer to segmentDir/basename. A write-then-close
// is all §4.3 step 3 asks for: an interrupted download leaves a
// detectably-truncated file rather than a half-renamed one.
func (f *Fetcher) writeFile(basename string, buffer []byte) error {
	path := f.segmentDir + "/" + basename
	out, err := os.Create(path)
	if err != nil {
		return direrr.New(direrr.Other, "fetch", fmt.Errorf("create %s: %w", path, err))
	}
	defer out.Close()

	if _, err := out.Write(buffer); err != nil {
		return direrr.New(direrr.Other, "fetch", fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}
