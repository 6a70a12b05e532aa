package coordinator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evanc577/dash-archiver/internal/logger"
)

const emptyTimelineMPD = `<?xml version="1.0"?>
<MPD loapStreamId="s1" publishFrameTime="0">
  <Period>
    <AdaptationSet mimeType="video/mp4">
      <Representation id="v1" mimeType="video/mp4" bandwidth="100">
        <SegmentTemplate initialization="v/video-init.mp4" media="v/$Time$.m4s"/>
      </Representation>
    </AdaptationSet>
    <AdaptationSet mimeType="audio/mp4">
      <Representation id="a1" mimeType="audio/mp4" bandwidth="50">
        <SegmentTemplate initialization="a/audio-init.mp4" media="a/$Time$.m4s"/>
      </Representation>
    </AdaptationSet>
  </Period>
</MPD>`

func TestRun_LiveOnly_BootstrapsAndExitsWhenFinished(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/live.mpd":
			w.Header().Set("x-fb-video-broadcast-ended", "1")
			w.Write([]byte(emptyTimelineMPD))
		case r.URL.Path == "/v/video-init.mp4":
			w.Write([]byte("video-init"))
		case r.URL.Path == "/a/audio-init.mp4":
			w.Write([]byte("audio-init"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	log := logger.NewLogger("error")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := Run(ctx, log, Config{
		MPDURL:     srv.URL + "/live.mpd",
		SegmentDir: dir,
		LiveOnly:   true,
	})
	require.NoError(t, err)

	video, err := os.ReadFile(filepath.Join(dir, "video-init.mp4"))
	require.NoError(t, err)
	require.Equal(t, "video-init", string(video))

	audio, err := os.ReadFile(filepath.Join(dir, "audio-init.mp4"))
	require.NoError(t, err)
	require.Equal(t, "audio-init", string(audio))
}
