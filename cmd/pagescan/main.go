package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/joho/godotenv"

	"github.com/pagescan/pagescan/internal/detect"
	"github.com/pagescan/pagescan/internal/pipeline"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("pagescan %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	var (
		input      = flag.String("input", "", "path to the photographed page image (required)")
		output     = flag.String("output", "page.png", "path for the corrected, enhanced output image")
		multiScale = flag.Bool("multiscale", true, "detect at multiple image scales")
		timeout    = flag.Duration("timeout", pipeline.DefaultDetectTimeout, "detection stage timeout")
	)
	flag.Parse()

	// A local .env may supply environment configuration; its absence is fine.
	_ = godotenv.Load()

	logger := newLogger(os.Getenv("PAGESCAN_LOG_LEVEL"))
	slog.SetDefault(logger)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: pagescan -input photo.jpg [-output page.png] [-multiscale] [-timeout 3s]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(*input, *output, *multiScale, *timeout, logger); err != nil {
		logger.Error("processing failed", "error", err)
		os.Exit(1)
	}
}

func run(input, output string, multiScale bool, timeout time.Duration, logger *slog.Logger) error {
	img, err := imaging.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open input image: %w", err)
	}

	opts := pipeline.DefaultOptions()
	opts.MultiScale = multiScale
	opts.DetectTimeout = timeout

	p := pipeline.New(detect.NewContourDetector(), opts, logger)

	res := <-p.ProcessPage(context.Background(), img)
	if res.Err != nil {
		return res.Err
	}

	if res.Corrected {
		logger.Info("page boundary corrected",
			"confidence", res.Candidate.Confidence,
			"output_width", res.Image.Bounds().Dx(),
			"output_height", res.Image.Bounds().Dy())
	} else {
		logger.Info("no page boundary found; saving enhanced image without correction")
	}

	if err := imaging.Save(res.Image, output); err != nil {
		return fmt.Errorf("failed to save output image: %w", err)
	}

	logger.Info("saved", "path", output)
	return nil
}

// newLogger builds the process logger. Output goes to stderr so stdout
// stays clean for scripting.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
