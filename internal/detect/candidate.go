package detect

import (
	"github.com/pagescan/pagescan/internal/geometry"
)

// Candidate represents one detected quadrilateral page boundary.
//
// Corners are ordered clockwise from the top-left and are never reordered
// or relabeled after construction. Downstream code relies on that ordering
// but does not require convexity: a non-convex quadrilateral is legal input
// and simply scores low or produces a degraded warp.
//
// A Candidate is an immutable value. Rescaling produces a new Candidate
// with transformed corners, never an in-place edit.
type Candidate struct {
	TopLeft     geometry.Point `json:"top_left"`
	TopRight    geometry.Point `json:"top_right"`
	BottomRight geometry.Point `json:"bottom_right"`
	BottomLeft  geometry.Point `json:"bottom_left"`

	// Confidence is the detector-reported confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// Bounds returns the axis-aligned bounding box of the four corners.
func (c Candidate) Bounds() geometry.Rect {
	minX, maxX := c.TopLeft.X, c.TopLeft.X
	minY, maxY := c.TopLeft.Y, c.TopLeft.Y

	for _, p := range []geometry.Point{c.TopRight, c.BottomRight, c.BottomLeft} {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	return geometry.Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// Area returns the area of the bounding box.
func (c Candidate) Area() float64 {
	return c.Bounds().Area()
}

// AspectRatio returns bounding box width divided by height.
// A zero-height box yields 0 rather than dividing by zero.
func (c Candidate) AspectRatio() float64 {
	b := c.Bounds()
	h := b.Height()
	if h == 0 {
		return 0
	}
	return b.Width() / h
}

// Center returns the center of the bounding box.
func (c Candidate) Center() geometry.Point {
	return c.Bounds().Center()
}

// Scaled returns a copy of the candidate with every corner coordinate
// multiplied by factor. Confidence is unchanged.
func (c Candidate) Scaled(factor float64) Candidate {
	return c.mapCorners(func(p geometry.Point) geometry.Point {
		return geometry.Point{X: p.X * factor, Y: p.Y * factor}
	})
}

// mapCorners returns a copy of the candidate with fn applied to each corner,
// preserving the clockwise-from-top-left labeling.
func (c Candidate) mapCorners(fn func(geometry.Point) geometry.Point) Candidate {
	return Candidate{
		TopLeft:     fn(c.TopLeft),
		TopRight:    fn(c.TopRight),
		BottomRight: fn(c.BottomRight),
		BottomLeft:  fn(c.BottomLeft),
		Confidence:  c.Confidence,
	}
}

// corners returns the four corners in clockwise order starting at top-left.
func (c Candidate) corners() [4]geometry.Point {
	return [4]geometry.Point{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}
}

// ScoredCandidate pairs a candidate with its computed desirability score.
// It is created transiently during selection and not persisted.
type ScoredCandidate struct {
	Candidate Candidate `json:"candidate"`
	Score     float64   `json:"score"`
}
