package detect

import (
	"context"
	"image"
	"log/slog"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/pagescan/pagescan/internal/geometry"
)

// Aggregator runs detection across one or more image scales and merges the
// results into a single deduplicated candidate pool in the normalized
// reference frame.
type Aggregator struct {
	detector Detector
	logger   *slog.Logger
}

// NewAggregator wraps a detector. A nil logger falls back to slog.Default.
func NewAggregator(detector Detector, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{detector: detector, logger: logger}
}

// DetectSingleScale runs one detector pass on the full-resolution image and
// returns candidates normalized to the unit reference frame.
func (a *Aggregator) DetectSingleScale(ctx context.Context, img image.Image, cfg Config) ([]Candidate, error) {
	found, err := a.detector.Detect(ctx, img, cfg)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return normalizePool(found, bounds.Dx(), bounds.Dy()), nil
}

// DetectMultiScale runs detection at every scale factor in cfg.Scales
// concurrently and merges the results.
//
// For each scale the image is resampled (Lanczos), the detector is invoked
// with the base configuration, and each returned candidate's corners are
// re-projected into the scale-1.0 pixel grid by dividing by the scale
// factor, then normalized to the unit frame. Appends to the shared pool are
// serialized by a mutex; the per-scale detection work itself runs
// unsynchronized and in parallel.
//
// A detection failure at one scale is logged and contributes zero
// candidates; it never aborts the other scales. All scales failing simply
// yields an empty pool. The merged pool is deduplicated greedily: arrival
// order decides which of two near-identical boxes survives, which is
// acceptable because score-based selection, not retention order, picks the
// final result.
func (a *Aggregator) DetectMultiScale(ctx context.Context, img image.Image, cfg Config) ([]Candidate, error) {
	scales := cfg.Scales
	if len(scales) == 0 {
		scales = DefaultConfig().Scales
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var (
		mu   sync.Mutex
		pool []Candidate
		wg   sync.WaitGroup
	)

	for _, scale := range scales {
		if scale <= 0 {
			a.logger.Warn("skipping non-positive scale factor", "scale", scale)
			continue
		}

		wg.Add(1)
		go func(scale float64) {
			defer wg.Done()

			scaled := img
			if scale != 1.0 {
				scaled = imaging.Resize(img,
					int(float64(width)*scale), int(float64(height)*scale), imaging.Lanczos)
			}

			found, err := a.detector.Detect(ctx, scaled, cfg)
			if err != nil {
				a.logger.Warn("detection failed at scale", "scale", scale, "error", err)
				return
			}

			reprojected := make([]Candidate, 0, len(found))
			for _, c := range found {
				reprojected = append(reprojected, c.Scaled(1.0/scale))
			}

			mu.Lock()
			pool = append(pool, reprojected...)
			mu.Unlock()
		}(scale)
	}

	wg.Wait()

	return Deduplicate(normalizePool(pool, width, height), DuplicateIoUThreshold), nil
}

// DuplicateIoUThreshold is the bounding-box IoU above which two candidates
// are considered duplicates of each other. Exactly 0.8 keeps both.
const DuplicateIoUThreshold = 0.8

// Deduplicate collapses near-identical candidates from a merged pool.
//
// The pass is greedy and order-dependent: candidates are visited in arrival
// order and kept only if their bounding-box IoU against every already-kept
// candidate is at or below the threshold. IoU is computed on axis-aligned
// bounding boxes, not true polygon intersection, so a strongly rotated
// quadrilateral's overlap may be under- or over-estimated; the scoring
// stage is expected to compensate.
func Deduplicate(candidates []Candidate, threshold float64) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		box := c.Bounds()
		duplicate := false
		for _, k := range kept {
			if geometry.IoU(box, k.Bounds()) > threshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, c)
		}
	}
	return kept
}

// normalizePool maps pixel-space candidates into the unit reference frame
// by dividing X by the frame width and Y by the frame height.
func normalizePool(candidates []Candidate, width, height int) []Candidate {
	if width <= 0 || height <= 0 {
		return []Candidate{}
	}

	w := float64(width)
	h := float64(height)
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.mapCorners(func(p geometry.Point) geometry.Point {
			return geometry.Point{X: p.X / w, Y: p.Y / h}
		}))
	}
	return out
}
