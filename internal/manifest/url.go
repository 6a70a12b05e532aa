package manifest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/evanc577/dash-archiver/internal/direrr"
	"github.com/evanc577/dash-archiver/internal/stream"
)

// InitURL builds the absolute URL for stream k's initialization
// segment.
func (s *Snapshot) InitURL(k stream.Kind) (string, error) {
	return resolve(s.BaseURL, s.Representation(k).InitTemplate)
}

// SegmentURL builds the absolute URL for the media segment of stream k
// at timestamp t, substituting the media template's "$Time$"
// placeholder with the decimal timestamp.
func (s *Snapshot) SegmentURL(k stream.Kind, t uint64) (string, error) {
	path := strings.Replace(s.Representation(k).MediaTemplate, "$Time$", strconv.FormatUint(t, 10), 1)
	return resolve(s.BaseURL, path)
}

func resolve(base, path string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", direrr.New(direrr.InvalidURL, "resolve", fmt.Errorf("parse base %q: %w", base, err))
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", direrr.New(direrr.InvalidURL, "resolve", fmt.Errorf("parse path %q: %w", path, err))
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// LastPathSegment returns the final path component of a URL, used as
// the on-disk filename for a downloaded segment (invariant 4 of the
// shared archive state: filenames equal the last URL path component).
func LastPathSegment(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", direrr.New(direrr.InvalidURL, "LastPathSegment", err)
	}
	segments := strings.Split(strings.TrimRight(u.Path, "/"), "/")
	if len(segments) == 0 || segments[len(segments)-1] == "" {
		return "", direrr.New(direrr.InvalidURL, "LastPathSegment", fmt.Errorf("URL %q has no path segments", rawURL))
	}
	return segments[len(segments)-1], nil
}
