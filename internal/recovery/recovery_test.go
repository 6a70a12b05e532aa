package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanc577/dash-archiver/internal/archivestate"
	"github.com/evanc577/dash-archiver/internal/direrr"
	"github.com/evanc577/dash-archiver/internal/manifest"
	"github.com/evanc577/dash-archiver/internal/stream"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// stubFetcher simulates an origin that has a segment at every
// timestamp for which have returns true, and 404s everywhere else.
type stubFetcher struct {
	have      func(t uint64) bool
	fetched   []uint64
	callCount int
	failAfter int // if >0, return a transient "Other" error on this call
}

func (s *stubFetcher) Fetch(ctx context.Context, k stream.Kind, t uint64, checkPTS bool, url, basename string) error {
	s.callCount++
	if s.failAfter > 0 && s.callCount == s.failAfter {
		return direrr.New(direrr.Other, "fetch", errors.New("simulated transient failure"))
	}
	if !s.have(t) {
		return direrr.New(direrr.StatusNotFound, "fetch", errors.New("404"))
	}
	s.fetched = append(s.fetched, t)
	return nil
}

func testSnapshot() *manifest.Snapshot {
	return &manifest.Snapshot{
		BaseURL: "https://example.com/",
		Video: manifest.Representation{
			MediaTemplate: "video/$Time$.m4v",
		},
	}
}

func TestRun_WalksBackToStartFrame(t *testing.T) {
	state := archivestate.New()
	state.MarkDownloaded(stream.Video, 10000)

	f := &stubFetcher{have: func(t uint64) bool { return t%2000 == 0 }}

	err := Run(context.Background(), nopLogger{}, state, f, testSnapshot(), stream.Video, 2000)
	require.NoError(t, err)

	for _, want := range []uint64{8000, 6000, 4000, 2000} {
		assert.True(t, state.HasDownloaded(stream.Video, want), "expected %d downloaded", want)
	}
	min, ok := state.MinDownloaded(stream.Video)
	require.True(t, ok)
	assert.LessOrEqual(t, min, uint64(2000))
}

func TestRun_RetriesIndefinitelyOnExhaustionUntilCancelled(t *testing.T) {
	// When no candidate can be downloaded (here every generated delta is
	// larger than the starting timestamp 50, so each pass is exhausted
	// without a fetch), the engine never gives up on its own
	// (§4.1 step 7) — it keeps re-driving the generator. The only way
	// out without progress or reaching start_frame is an external
	// cancellation.
	state := archivestate.New()
	state.MarkDownloaded(stream.Video, 50)

	f := &stubFetcher{have: func(t uint64) bool { return false }}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		cancel()
	}()

	err := Run(ctx, nopLogger{}, state, f, testSnapshot(), stream.Video, 0)
	assert.Error(t, err)
	min, ok := state.MinDownloaded(stream.Video)
	require.True(t, ok)
	assert.Equal(t, uint64(50), min)
}

func TestRun_StopsImmediatelyWhenAtStartFrame(t *testing.T) {
	state := archivestate.New()
	state.MarkDownloaded(stream.Video, 100)

	f := &stubFetcher{have: func(t uint64) bool { return true }}

	err := Run(context.Background(), nopLogger{}, state, f, testSnapshot(), stream.Video, 100)
	require.NoError(t, err)
	assert.Empty(t, f.fetched)
}

func TestRun_ContextCancelStopsTheWalk(t *testing.T) {
	state := archivestate.New()
	state.MarkDownloaded(stream.Video, 1_000_000)

	f := &stubFetcher{have: func(t uint64) bool { return false }}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, nopLogger{}, state, f, testSnapshot(), stream.Video, 0)
	assert.Error(t, err)
}
