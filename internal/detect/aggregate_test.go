package detect

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
)

// stubDetector returns preconfigured candidates keyed by the width of the
// image it is handed, letting tests hand different results to different
// scales. Widths with a nil entry report a detection failure.
type stubDetector struct {
	byWidth map[int][]Candidate
	failing map[int]bool
}

func (d *stubDetector) Detect(_ context.Context, img image.Image, _ Config) ([]Candidate, error) {
	w := img.Bounds().Dx()
	if d.failing[w] {
		return nil, errors.New("detector unavailable")
	}
	return d.byWidth[w], nil
}

func uniformImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{200, 200, 200, 255})
		}
	}
	return img
}

func TestDeduplicate(t *testing.T) {
	tests := []struct {
		name      string
		pool      []Candidate
		wantCount int
	}{
		{
			// IoU = 0.9 > 0.8: collapse to the first arrival.
			"high overlap collapses",
			[]Candidate{
				quad(0, 0, 1, 0, 1, 1, 0, 1, 0.9),
				quad(0, 0, 1, 0, 1, 0.9, 0, 0.9, 0.8),
			},
			1,
		},
		{
			// IoU exactly 0.8 is not strictly above the threshold.
			"threshold overlap survives",
			[]Candidate{
				quad(0, 0, 1, 0, 1, 1, 0, 1, 0.9),
				quad(0, 0, 1, 0, 1, 0.8, 0, 0.8, 0.8),
			},
			2,
		},
		{
			"disjoint survive",
			[]Candidate{
				quad(0, 0, 0.4, 0, 0.4, 0.4, 0, 0.4, 0.9),
				quad(0.6, 0.6, 1, 0.6, 1, 1, 0.6, 1, 0.9),
			},
			2,
		},
		{
			// Three near-identical boxes collapse to the first.
			"chain of duplicates",
			[]Candidate{
				quad(0.1, 0.1, 0.9, 0.1, 0.9, 0.9, 0.1, 0.9, 0.9),
				quad(0.1, 0.1, 0.9, 0.1, 0.9, 0.88, 0.1, 0.88, 0.8),
				quad(0.11, 0.1, 0.9, 0.1, 0.9, 0.9, 0.11, 0.9, 0.7),
			},
			1,
		},
		{
			"empty pool",
			nil,
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Deduplicate(tt.pool, DuplicateIoUThreshold)
			if len(got) != tt.wantCount {
				t.Errorf("Deduplicate kept %d candidates, want %d", len(got), tt.wantCount)
			}
		})
	}
}

func TestDeduplicate_KeepsFirstArrival(t *testing.T) {
	first := quad(0.1, 0.1, 0.9, 0.1, 0.9, 0.9, 0.1, 0.9, 0.5)
	second := quad(0.1, 0.1, 0.9, 0.1, 0.9, 0.88, 0.1, 0.88, 0.99)

	got := Deduplicate([]Candidate{first, second}, DuplicateIoUThreshold)
	if len(got) != 1 {
		t.Fatalf("kept %d candidates, want 1", len(got))
	}
	if got[0] != first {
		t.Error("greedy dedup did not keep the first arrival")
	}
}

func TestDetectMultiScale_ReprojectsIntoReferenceFrame(t *testing.T) {
	// The same physical page seen at scale 1.0 (100×100 pixels) and scale
	// 0.5 (50×50 pixels). After re-projection both describe the same
	// normalized region, so deduplication keeps exactly one.
	stub := &stubDetector{
		byWidth: map[int][]Candidate{
			100: {quad(10, 10, 90, 10, 90, 90, 10, 90, 0.9)},
			50:  {quad(5, 5, 45, 5, 45, 45, 5, 45, 0.8)},
			75:  {},
		},
	}

	agg := NewAggregator(stub, nil)
	got, err := agg.DetectMultiScale(context.Background(), uniformImage(100, 100), DefaultConfig())
	if err != nil {
		t.Fatalf("DetectMultiScale failed: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1 after cross-scale dedup", len(got))
	}

	c := got[0]
	if !almost(c.TopLeft.X, 0.1, 1e-9) || !almost(c.BottomRight.X, 0.9, 1e-9) {
		t.Errorf("re-projected corners wrong: %+v", c)
	}
}

func TestDetectMultiScale_DistinctCandidatesSurvive(t *testing.T) {
	stub := &stubDetector{
		byWidth: map[int][]Candidate{
			100: {quad(5, 5, 40, 5, 40, 40, 5, 40, 0.9)},
			50:  {quad(30, 30, 48, 30, 48, 48, 30, 48, 0.8)},
			75:  {},
		},
	}

	agg := NewAggregator(stub, nil)
	got, err := agg.DetectMultiScale(context.Background(), uniformImage(100, 100), DefaultConfig())
	if err != nil {
		t.Fatalf("DetectMultiScale failed: %v", err)
	}

	if len(got) != 2 {
		t.Errorf("got %d candidates, want 2 distinct regions", len(got))
	}
}

func TestDetectMultiScale_PartialFailureAbsorbed(t *testing.T) {
	stub := &stubDetector{
		byWidth: map[int][]Candidate{
			100: {quad(10, 10, 90, 10, 90, 90, 10, 90, 0.9)},
		},
		failing: map[int]bool{50: true, 75: true},
	}

	agg := NewAggregator(stub, nil)
	got, err := agg.DetectMultiScale(context.Background(), uniformImage(100, 100), DefaultConfig())
	if err != nil {
		t.Fatalf("partial failure must not propagate, got %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d candidates, want 1 from the surviving scale", len(got))
	}
}

func TestDetectMultiScale_TotalFailureYieldsEmptyPool(t *testing.T) {
	stub := &stubDetector{
		failing: map[int]bool{100: true, 75: true, 50: true},
	}

	agg := NewAggregator(stub, nil)
	got, err := agg.DetectMultiScale(context.Background(), uniformImage(100, 100), DefaultConfig())
	if err != nil {
		t.Fatalf("total failure surfaces as no candidates, not error; got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d candidates, want 0", len(got))
	}
}

func TestDetectSingleScale_Normalizes(t *testing.T) {
	stub := &stubDetector{
		byWidth: map[int][]Candidate{
			200: {quad(20, 10, 180, 10, 180, 90, 20, 90, 0.9)},
		},
	}

	agg := NewAggregator(stub, nil)
	got, err := agg.DetectSingleScale(context.Background(), uniformImage(200, 100), DefaultConfig())
	if err != nil {
		t.Fatalf("DetectSingleScale failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}

	c := got[0]
	if !almost(c.TopLeft.X, 0.1, 1e-9) || !almost(c.TopLeft.Y, 0.1, 1e-9) {
		t.Errorf("TopLeft not normalized: %+v", c.TopLeft)
	}
	if !almost(c.BottomRight.X, 0.9, 1e-9) || !almost(c.BottomRight.Y, 0.9, 1e-9) {
		t.Errorf("BottomRight not normalized: %+v", c.BottomRight)
	}
}

func TestDetectSingleScale_PropagatesError(t *testing.T) {
	stub := &stubDetector{failing: map[int]bool{100: true}}

	agg := NewAggregator(stub, nil)
	if _, err := agg.DetectSingleScale(context.Background(), uniformImage(100, 100), DefaultConfig()); err == nil {
		t.Error("single-scale detector failure must propagate to the caller")
	}
}
