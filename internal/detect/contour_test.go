package detect

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/pagescan/pagescan/internal/geometry"
)

// pageImage draws a dark filled convex quadrilateral (the "page") on a
// white background, mirroring the canonical test cases for the detector:
// a perfect rectangle, a tilted page, and a perspective-distorted page.
func pageImage(w, h int, corners [4]geometry.Point) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if insideConvexQuad(float64(x), float64(y), corners) {
				img.Set(x, y, color.RGBA{40, 40, 40, 255})
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

// insideConvexQuad reports whether (x,y) lies inside the clockwise convex
// quadrilateral, using the sign of the cross product along each edge.
func insideConvexQuad(x, y float64, c [4]geometry.Point) bool {
	for i := 0; i < 4; i++ {
		a := c[i]
		b := c[(i+1)%4]
		cross := (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
		if cross < 0 {
			return false
		}
	}
	return true
}

func TestContourDetector_PerfectRectangle(t *testing.T) {
	corners := [4]geometry.Point{
		{X: 50, Y: 50}, {X: 450, Y: 50}, {X: 450, Y: 650}, {X: 50, Y: 650},
	}
	img := pageImage(500, 700, corners)

	d := NewContourDetector()
	got, err := d.Detect(context.Background(), img, DefaultConfig())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("no candidates for a clean rectangular page")
	}

	best := got[0]
	if best.Confidence < 0.8 {
		t.Errorf("rectangle confidence too low: %v", best.Confidence)
	}

	// Corners are reported in pixel coordinates; edge detection lands
	// within a couple of pixels of the drawn outline.
	wantTL := geometry.Point{X: 50, Y: 50}
	if geometry.Distance(best.TopLeft, wantTL) > 4 {
		t.Errorf("TopLeft %+v too far from %+v", best.TopLeft, wantTL)
	}
	wantBR := geometry.Point{X: 450, Y: 650}
	if geometry.Distance(best.BottomRight, wantBR) > 4 {
		t.Errorf("BottomRight %+v too far from %+v", best.BottomRight, wantBR)
	}
}

func TestContourDetector_TiltedPage(t *testing.T) {
	corners := [4]geometry.Point{
		{X: 100, Y: 80}, {X: 400, Y: 50}, {X: 420, Y: 620}, {X: 80, Y: 650},
	}
	img := pageImage(500, 700, corners)

	cfg := DefaultConfig()
	cfg.MinConfidence = 0.5 // tilted outlines deviate more from the bbox perimeter

	d := NewContourDetector()
	got, err := d.Detect(context.Background(), img, cfg)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("no candidates for a tilted page")
	}

	// Corner refinement must follow the tilt rather than reporting the
	// axis-aligned bounding box corners.
	best := got[0]
	if math.Abs(best.TopLeft.X-100) > 15 || math.Abs(best.TopLeft.Y-80) > 15 {
		t.Errorf("TopLeft %+v not near the tilted corner (100,80)", best.TopLeft)
	}
	if math.Abs(best.TopRight.X-400) > 15 || math.Abs(best.TopRight.Y-50) > 15 {
		t.Errorf("TopRight %+v not near the tilted corner (400,50)", best.TopRight)
	}
}

func TestContourDetector_AspectGating(t *testing.T) {
	// A very wide, short strip falls outside the aspect window.
	corners := [4]geometry.Point{
		{X: 20, Y: 200}, {X: 480, Y: 200}, {X: 480, Y: 240}, {X: 20, Y: 240},
	}
	img := pageImage(500, 500, corners)

	cfg := DefaultConfig()
	cfg.MinAspectRatio = 0.5
	cfg.MaxAspectRatio = 2.0

	d := NewContourDetector()
	got, err := d.Detect(context.Background(), img, cfg)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	for _, c := range got {
		ar := c.AspectRatio()
		if ar < cfg.MinAspectRatio || ar > cfg.MaxAspectRatio {
			t.Errorf("candidate with out-of-window aspect %v survived gating", ar)
		}
	}
}

func TestContourDetector_MaxObservations(t *testing.T) {
	// Two separate rectangles; the cap keeps only the strongest candidate.
	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.White)
		}
	}
	for y := 40; y < 180; y++ {
		for x := 40; x < 160; x++ {
			img.Set(x, y, color.RGBA{30, 30, 30, 255})
		}
	}
	for y := 220; y < 360; y++ {
		for x := 220; x < 360; x++ {
			img.Set(x, y, color.RGBA{30, 30, 30, 255})
		}
	}

	cfg := DefaultConfig()
	cfg.MaxObservations = 1
	cfg.MinConfidence = 0.5

	d := NewContourDetector()
	got, err := d.Detect(context.Background(), img, cfg)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(got) > 1 {
		t.Errorf("got %d candidates, MaxObservations is 1", len(got))
	}
}

func TestContourDetector_BlankImage(t *testing.T) {
	d := NewContourDetector()
	got, err := d.Detect(context.Background(), uniformImage(200, 200), DefaultConfig())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("blank image produced %d candidates, want 0", len(got))
	}
}

func TestContourDetector_TinyImage(t *testing.T) {
	d := NewContourDetector()
	got, err := d.Detect(context.Background(), uniformImage(2, 2), DefaultConfig())
	if err != nil {
		t.Fatalf("Detect failed on tiny image: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("tiny image produced %d candidates", len(got))
	}
}

func TestContourDetector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewContourDetector()
	if _, err := d.Detect(ctx, uniformImage(100, 100), DefaultConfig()); err == nil {
		t.Error("cancelled context must surface an error")
	}
}
