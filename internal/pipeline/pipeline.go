// Package pipeline sequences preprocessing, page detection, perspective
// correction, and enhancement into the caller-facing page-processing flow.
//
// A run moves through the stages
//
//	Idle → Preprocessing → Detecting → Correcting → Enhancing → Done
//
// with Failed reachable from any stage. Correction is optional: when no
// candidate is selected (including when detection times out), the run
// proceeds from the preprocessed image straight to Enhancing. Enhancing
// always runs.
package pipeline

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pagescan/pagescan/internal/detect"
	"github.com/pagescan/pagescan/internal/enhance"
	"github.com/pagescan/pagescan/internal/warp"
)

// Stage identifies where a pipeline run currently is.
type Stage int

const (
	StageIdle Stage = iota
	StagePreprocessing
	StageDetecting
	StageCorrecting
	StageEnhancing
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StagePreprocessing:
		return "preprocessing"
	case StageDetecting:
		return "detecting"
	case StageCorrecting:
		return "correcting"
	case StageEnhancing:
		return "enhancing"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultDetectTimeout bounds how long the Detecting stage waits before
// treating detection as having produced no candidate.
const DefaultDetectTimeout = 3 * time.Second

// Options configures a Pipeline. A zero DetectTimeout and an empty scale
// list are filled in by New; an empty filter sequence genuinely means no
// filters for that stage.
type Options struct {
	// Detection is the parameter set handed to the detector.
	Detection detect.Config

	// MultiScale selects multi-scale detection with cross-scale merging;
	// when false a single full-resolution pass runs.
	MultiScale bool

	// DetectTimeout bounds the Detecting stage. Expiry is a graceful skip,
	// not a failure.
	DetectTimeout time.Duration

	// Preprocess and Enhance are the ordered transform sequences applied
	// around detection and correction.
	Preprocess []enhance.Op
	Enhance    []enhance.Op
}

// DefaultOptions returns the standard pipeline configuration: multi-scale
// detection with the default scale set and the stock filter sequences.
func DefaultOptions() Options {
	return Options{
		Detection:     detect.DefaultConfig(),
		MultiScale:    true,
		DetectTimeout: DefaultDetectTimeout,
		Preprocess:    enhance.PreprocessOps(),
		Enhance:       enhance.EnhanceOps(),
	}
}

// Result is the single outcome of one page-processing run.
type Result struct {
	// Image is the corrected, enhanced page image. Set whenever Err is nil,
	// even if no page boundary was found (the image is then preprocessed
	// and enhanced but not perspective-corrected).
	Image image.Image

	// Candidate is the selected page boundary, nil when none qualified.
	Candidate *detect.Candidate

	// Corrected reports whether perspective correction was applied.
	Corrected bool

	// Err is non-nil only for fatal failures (invalid input, final image
	// materialization). Absence of candidates is a successful result.
	Err error
}

// Pipeline orchestrates the page-processing stages. It holds no per-request
// state and is safe for concurrent ProcessPage calls.
type Pipeline struct {
	aggregator *detect.Aggregator
	opts       Options
	logger     *slog.Logger
}

// New builds a pipeline around a detector. A nil logger falls back to
// slog.Default. Zero-value options fields are filled from DefaultOptions.
func New(detector detect.Detector, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DetectTimeout <= 0 {
		opts.DetectTimeout = DefaultDetectTimeout
	}
	if len(opts.Detection.Scales) == 0 {
		opts.Detection.Scales = detect.DefaultConfig().Scales
	}
	return &Pipeline{
		aggregator: detect.NewAggregator(detector, logger),
		opts:       opts,
		logger:     logger,
	}
}

// ProcessPage processes a photographed page off the calling goroutine and
// delivers exactly one Result on the returned channel.
//
// The caller is never blocked: the channel is buffered and the pipeline
// runs on a background goroutine. Cancellation mid-pipeline is not
// supported; a caller that stops listening simply discards the result when
// it eventually arrives.
func (p *Pipeline) ProcessPage(ctx context.Context, img image.Image) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		out <- p.Run(ctx, img)
	}()
	return out
}

// Run executes one page-processing pass synchronously and returns its
// result. Most callers want ProcessPage; Run exists for tests and for
// callers that manage their own workers.
func (p *Pipeline) Run(ctx context.Context, img image.Image) Result {
	requestID := uuid.NewString()
	logger := p.logger.With("request_id", requestID)

	stage := StageIdle
	advance := func(next Stage) {
		logger.Debug("stage transition", "from", stage.String(), "to", next.String())
		stage = next
	}

	if img == nil || img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		failedAt := stage
		advance(StageFailed)
		return Result{Err: &Error{
			Code:      CodeInvalidInput,
			Stage:     failedAt,
			RequestID: requestID,
			Message:   "input image is nil or empty",
		}}
	}

	advance(StagePreprocessing)
	pre := enhance.Apply(img, p.opts.Preprocess)

	advance(StageDetecting)
	candidates := p.detectBounded(ctx, logger, pre)

	best, found := detect.SelectBest(candidates, detect.UnitFrame)

	current := pre
	corrected := false
	if found {
		advance(StageCorrecting)
		warped, err := warp.Correct(pre, best)
		if err != nil {
			// A failed warp degrades to the uncorrected image; the page is
			// still readable after enhancement.
			logger.Warn("perspective correction failed", "error", err)
		} else {
			current = warped
			corrected = true
		}
	} else {
		logger.Info("no page boundary selected; skipping correction")
	}

	advance(StageEnhancing)
	final := enhance.Apply(current, p.opts.Enhance)

	if final == nil || final.Bounds().Dx() <= 0 || final.Bounds().Dy() <= 0 {
		failedAt := stage
		advance(StageFailed)
		return Result{Err: &Error{
			Code:      CodeConversionFailed,
			Stage:     failedAt,
			RequestID: requestID,
			Message:   "enhanced image could not be materialized",
		}}
	}

	advance(StageDone)

	res := Result{Image: final, Corrected: corrected}
	if found {
		res.Candidate = &best
	}
	return res
}

// detectBounded runs detection on a background worker and waits at most
// DetectTimeout for it. Timeout, cancellation, and detector failure all
// degrade to "no candidates": detection problems are absorbed here and
// never fail the pipeline.
func (p *Pipeline) detectBounded(ctx context.Context, logger *slog.Logger, img image.Image) []detect.Candidate {
	type outcome struct {
		candidates []detect.Candidate
		err        error
	}

	dctx, cancel := context.WithTimeout(ctx, p.opts.DetectTimeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		var o outcome
		if p.opts.MultiScale {
			o.candidates, o.err = p.aggregator.DetectMultiScale(dctx, img, p.opts.Detection)
		} else {
			o.candidates, o.err = p.aggregator.DetectSingleScale(dctx, img, p.opts.Detection)
		}
		ch <- o
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			logger.Warn("detection unavailable",
				"code", string(CodeDetectionUnavailable), "error", o.err)
			return nil
		}
		logger.Debug("detection complete", "candidates", len(o.candidates))
		return o.candidates
	case <-dctx.Done():
		logger.Warn("detection did not complete in time; proceeding without correction",
			"timeout", p.opts.DetectTimeout)
		return nil
	}
}
