// Package manifest is the archiver's read-only view of the DASH
// manifest: the current timeline window, the two media templates, and
// the best-bitrate representation of each stream. It wraps a real
// MPD parser (github.com/Eyevinn/dash-mpd/mpd) instead of a hand-rolled
// encoding/xml struct tree, since the manifest grammar this system
// consumes (SegmentTemplate + SegmentTimeline, one video and one audio
// adaptation set) is exactly what that library already models.
package manifest

import (
	"encoding/xml"
	"fmt"
	"strings"

	m "github.com/Eyevinn/dash-mpd/mpd"

	"github.com/evanc577/dash-archiver/internal/stream"
)

// Segment is one entry of a representation's visible timeline: a
// start time and duration in the representation's timescale units.
type Segment struct {
	Time     uint64
	Duration uint64
}

// Representation is the archiver's read-only view of one encoded
// variant of a stream: its templates (already resolved against
// $RepresentationID$) and its currently-visible timeline.
type Representation struct {
	ID        string
	MimeType  string
	Bandwidth uint32
	Width     uint32
	Height    uint32
	FrameRate string

	// InitTemplate and MediaTemplate are paths relative to the
	// manifest base. MediaTemplate still contains the literal
	// "$Time$" placeholder.
	InitTemplate  string
	MediaTemplate string

	Timeline []Segment
}

// Snapshot is a single fetch of the manifest: the broadcast's
// identity, its first-frame lower bound, whether it has ended, the
// base URL segment/init paths resolve against, and the best video and
// audio representations.
type Snapshot struct {
	StreamID   string
	StartFrame uint64
	Finished   bool
	BaseURL    string

	Video Representation
	Audio Representation
}

// Representation returns the snapshot's representation for k.
func (s *Snapshot) Representation(k stream.Kind) Representation {
	if k == stream.Audio {
		return s.Audio
	}
	return s.Video
}

// rawAttrs decodes the two vendor attributes on the MPD root element
// that github.com/Eyevinn/dash-mpd/mpd has no field for, since they
// are not part of the standard MPD schema.
type rawAttrs struct {
	XMLName          xml.Name `xml:"MPD"`
	StreamID         string   `xml:"loapStreamId,attr"`
	PublishFrameTime uint64   `xml:"publishFrameTime,attr"`
}

// Parse builds a Snapshot from raw manifest bytes, the manifest's own
// URL (used to resolve relative templates against its directory), and
// whether the response carried the broadcast-ended header.
func Parse(body []byte, manifestURL string, finished bool) (*Snapshot, error) {
	mpd, err := m.ReadFromString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse MPD: %w", err)
	}

	var attrs rawAttrs
	// Best-effort: the body already parsed successfully above, so a
	// failure here just means the vendor attributes are absent.
	_ = xml.Unmarshal(body, &attrs)

	video, audio, err := bestMedia(mpd)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		StreamID:   attrs.StreamID,
		StartFrame: attrs.PublishFrameTime,
		Finished:   finished,
		BaseURL:    baseOf(manifestURL),
		Video:      video,
		Audio:      audio,
	}, nil
}

// baseOf returns the directory component of a URL, matching how a
// DASH client resolves relative segment templates against the
// manifest's own location when no explicit BaseURL element is
// present.
func baseOf(rawURL string) string {
	idx := strings.LastIndex(rawURL, "/")
	if idx == -1 {
		return rawURL
	}
	return rawURL[:idx+1]
}

// bestMedia picks the highest-bandwidth video and audio representation
// across every adaptation set in every period, mirroring the
// reference downloader's best_media() selection.
func bestMedia(mpd *m.MPD) (video, audio Representation, err error) {
	var bestVideoBW, bestAudioBW uint32
	haveVideo, haveAudio := false, false

	for _, period := range mpd.Periods {
		for _, as := range period.AdaptationSets {
			for _, rep := range as.Representations {
				mime := rep.MimeType
				if mime == "" {
					mime = as.MimeType
				}

				switch {
				case strings.HasPrefix(mime, "video") && (!haveVideo || rep.Bandwidth > bestVideoBW):
					r, buildErr := toRepresentation(as, rep, mime)
					if buildErr != nil {
						return Representation{}, Representation{}, buildErr
					}
					video = r
					bestVideoBW = rep.Bandwidth
					haveVideo = true
				case strings.HasPrefix(mime, "audio") && (!haveAudio || rep.Bandwidth > bestAudioBW):
					r, buildErr := toRepresentation(as, rep, mime)
					if buildErr != nil {
						return Representation{}, Representation{}, buildErr
					}
					audio = r
					bestAudioBW = rep.Bandwidth
					haveAudio = true
				}
			}
		}
	}

	if !haveVideo || !haveAudio {
		return Representation{}, Representation{}, fmt.Errorf("manifest has no usable video/audio representation")
	}
	return video, audio, nil
}

func toRepresentation(as *m.AdaptationSetType, rep *m.RepresentationType, mime string) (Representation, error) {
	initTemplate, err := rep.GetInit()
	if err != nil {
		return Representation{}, fmt.Errorf("resolve init template for representation %s: %w", rep.Id, err)
	}
	mediaTemplate, err := rep.GetMedia()
	if err != nil {
		return Representation{}, fmt.Errorf("resolve media template for representation %s: %w", rep.Id, err)
	}

	segTmpl := rep.SegmentTemplate
	if segTmpl == nil {
		segTmpl = as.SegmentTemplate
	}

	var timeline []Segment
	if segTmpl != nil && segTmpl.SegmentTimeline != nil {
		timeline = expandTimeline(segTmpl.SegmentTimeline.S)
	}

	return Representation{
		ID:            rep.Id,
		MimeType:      mime,
		Bandwidth:     rep.Bandwidth,
		Width:         rep.Width,
		Height:        rep.Height,
		FrameRate:     string(rep.FrameRate),
		InitTemplate:  initTemplate,
		MediaTemplate: mediaTemplate,
		Timeline:      timeline,
	}, nil
}

// expandTimeline flattens a SegmentTimeline's S elements, including
// repeat counts, into an ordered slice of (t, d) pairs — the same
// accumulation the DASH-IF reference fetcher performs when walking a
// SegmentTimeline with $Time$ substitution.
func expandTimeline(entries []*m.S) []Segment {
	out := make([]Segment, 0, len(entries))
	var t uint64
	haveT := false

	for _, e := range entries {
		if e.T != nil {
			t = *e.T
			haveT = true
		} else if !haveT {
			// A manifest with no explicit t on its first S element has
			// nothing to anchor the timeline to; skip it rather than
			// guess.
			continue
		}

		out = append(out, Segment{Time: t, Duration: e.D})
		t += e.D

		for i := 0; i < e.R; i++ {
			out = append(out, Segment{Time: t, Duration: e.D})
			t += e.D
		}
	}

	return out
}
