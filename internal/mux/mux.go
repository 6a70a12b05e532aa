// Package mux is the final muxing step (§6, external collaborator
// interface): it concatenates every downloaded video segment into one
// file, every audio segment into another, and shells out to ffmpeg to
// combine them into the finished container. There is no in-process
// media muxer to substitute for ffmpeg here — the spec gives the
// command line, not a format to re-implement.
package mux

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"unicode"

	"github.com/evanc577/dash-archiver/internal/direrr"
)

// Merge concatenates dir/segments/*.m4v and dir/segments/*.m4a
// (natural-sorted) into temporary files and muxes them into
// dir/output.mp4 via ffmpeg.
func Merge(ctx context.Context, dir string) (string, error) {
	segmentDir := filepath.Join(dir, "segments")

	videoParts, err := naturalSortedGlob(segmentDir, "*.m4v")
	if err != nil {
		return "", err
	}
	if len(videoParts) == 0 {
		return "", direrr.New(direrr.MissingInit, "merge", fmt.Errorf("no .m4v segments found under %s", segmentDir))
	}

	audioParts, err := naturalSortedGlob(segmentDir, "*.m4a")
	if err != nil {
		return "", err
	}
	if len(audioParts) == 0 {
		return "", direrr.New(direrr.MissingInit, "merge", fmt.Errorf("no .m4a segments found under %s", segmentDir))
	}

	videoFile := filepath.Join(dir, "video.tmp.m4v")
	if err := concat(videoParts, videoFile); err != nil {
		return "", err
	}
	audioFile := filepath.Join(dir, "audio.tmp.m4a")
	if err := concat(audioParts, audioFile); err != nil {
		return "", err
	}
	defer os.Remove(videoFile)
	defer os.Remove(audioFile)

	output := filepath.Join(dir, "output.mp4")
	if err := runFFmpeg(ctx, videoFile, audioFile, output); err != nil {
		return "", err
	}
	return output, nil
}

// naturalSortedGlob lists files matching pattern under dir and orders
// them the way a human reading timestamp-named segment files would:
// digit runs compare by numeric value, not lexicographically (so
// "2.m4v" sorts before "10.m4v"). No third-party natural-sort package
// was found anywhere in the retrieved corpus, so this is a deliberate
// standard-library fallback (see DESIGN.md).
func naturalSortedGlob(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, direrr.New(direrr.Other, "merge", err)
	}
	sort.Slice(matches, func(i, j int) bool {
		return naturalLess(filepath.Base(matches[i]), filepath.Base(matches[j]))
	})
	return matches, nil
}

// naturalLess compares two filenames by splitting them into runs of
// digits and non-digits, comparing digit runs numerically.
func naturalLess(a, b string) bool {
	ai, bi := 0, 0
	for ai < len(a) && bi < len(b) {
		aIsDigit := unicode.IsDigit(rune(a[ai]))
		bIsDigit := unicode.IsDigit(rune(b[bi]))

		switch {
		case aIsDigit && bIsDigit:
			aStart, bStart := ai, bi
			for ai < len(a) && unicode.IsDigit(rune(a[ai])) {
				ai++
			}
			for bi < len(b) && unicode.IsDigit(rune(b[bi])) {
				bi++
			}
			aNum, bNum := trimLeadingZeros(a[aStart:ai]), trimLeadingZeros(b[bStart:bi])
			if len(aNum) != len(bNum) {
				return len(aNum) < len(bNum)
			}
			if aNum != bNum {
				return aNum < bNum
			}
		default:
			if a[ai] != b[bi] {
				return a[ai] < b[bi]
			}
			ai++
			bi++
		}
	}
	return len(a)-ai < len(b)-bi
}

func trimLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}

// concat writes every part's bytes, in order, into dest.
func concat(parts []string, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return direrr.New(direrr.Other, "merge", err)
	}
	defer out.Close()

	for _, part := range parts {
		in, err := os.Open(part)
		if err != nil {
			return direrr.New(direrr.Other, "merge", err)
		}
		_, copyErr := io.Copy(out, in)
		in.Close()
		if copyErr != nil {
			return direrr.New(direrr.Other, "merge", fmt.Errorf("copy %s into %s: %w", part, dest, copyErr))
		}
	}
	return nil
}

// runFFmpeg shells out to ffmpeg to remux the concatenated video and
// audio streams into a single container, copying codecs rather than
// re-encoding.
func runFFmpeg(ctx context.Context, videoFile, audioFile, output string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoFile,
		"-i", audioFile,
		"-c", "copy",
		"-y", output,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return direrr.New(direrr.TranscoderFail, "merge", fmt.Errorf("ffmpeg: %w (output: %s)", err, out))
	}
	return nil
}
