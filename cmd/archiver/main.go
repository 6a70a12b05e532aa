package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/evanc577/dash-archiver/internal/coordinator"
	"github.com/evanc577/dash-archiver/internal/logger"
	"github.com/evanc577/dash-archiver/internal/mux"
)

const userAgent = "dash-archiver/1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	log := logger.NewLogger("info")

	var err error
	switch os.Args[1] {
	case "download":
		err = runDownload(log, os.Args[2:])
	case "merge":
		err = runMerge(log, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: archiver download <mpd_url> [-output DIR] [-no-merge] [-live-only]")
	fmt.Fprintln(os.Stderr, "       archiver merge <directory>")
}

func runDownload(log logger.Logger, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	output := fs.String("output", "", "output directory (default: \"archive\", not derived from the stream id)")
	noMerge := fs.Bool("no-merge", false, "skip the final ffmpeg mux step")
	liveOnly := fs.Bool("live-only", false, "skip past-recovery, track only newly-published segments")
	logLevel := fs.String("log-level", "info", "log level (error, warn, info, debug)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	mpdURL := fs.Arg(0)

	log = logger.NewLogger(*logLevel)

	outputDir := *output
	if outputDir == "" {
		outputDir = "archive"
	}
	segmentDir := filepath.Join(outputDir, "segments")
	if err := os.MkdirAll(segmentDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		log.Infof("received shutdown signal, cancelling in-flight work...")
		cancel()
	}()

	log.Infof("downloading %s into %s", mpdURL, outputDir)
	err := coordinator.Run(ctx, log, coordinator.Config{
		MPDURL:     mpdURL,
		SegmentDir: segmentDir,
		UserAgent:  userAgent,
		LiveOnly:   *liveOnly,
	})
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	log.Infof("download complete")

	if *noMerge {
		return nil
	}
	return doMerge(log, outputDir)
}

func runMerge(log logger.Logger, args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	return doMerge(log, fs.Arg(0))
}

func doMerge(log logger.Logger, dir string) error {
	log.Infof("merging segments under %s", dir)
	output, err := mux.Merge(context.Background(), dir)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	log.Infof("wrote %s", output)
	return nil
}
