package geometry

import "math"

// Point represents a 2D coordinate in normalized image space.
//
// In the default reference frame both components lie in [0,1], with the
// origin at the top-left of the image. Points produced by detectors may
// temporarily live in pixel space; the aggregation layer is responsible
// for bringing them into the reference frame.
type Point struct {
	X float64 `json:"x"` // Horizontal position (0 = left edge)
	Y float64 `json:"y"` // Vertical position (0 = top edge)
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// InteriorAngle computes the angle at vertex v formed by the segments
// v→a and v→b, in degrees.
//
// The angle is computed from the dot product of the two edge vectors:
//
//	cos(θ) = (va · vb) / (|va| × |vb|)
//
// If either edge vector has zero magnitude (coincident or collinear
// corners), the cosine is undefined; the function returns 90° so that
// degenerate quadrilaterals are scored low by other factors rather than
// producing NaN downstream.
func InteriorAngle(v, a, b Point) float64 {
	ax, ay := a.X-v.X, a.Y-v.Y
	bx, by := b.X-v.X, b.Y-v.Y

	magA := math.Hypot(ax, ay)
	magB := math.Hypot(bx, by)
	if magA == 0 || magB == 0 {
		return 90
	}

	cos := (ax*bx + ay*by) / (magA * magB)
	// Rounding can push the ratio just past ±1, which arccos rejects.
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}

	return math.Acos(cos) * 180 / math.Pi
}

// Rect is an axis-aligned rectangle in the same coordinate space as Point.
//
// MinX/MinY is the top-left corner, MaxX/MaxY the bottom-right. An empty
// rectangle has Max ≤ Min on either axis and has zero area.
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Width returns the horizontal extent of the rectangle, or 0 if empty.
func (r Rect) Width() float64 {
	if r.MaxX <= r.MinX {
		return 0
	}
	return r.MaxX - r.MinX
}

// Height returns the vertical extent of the rectangle, or 0 if empty.
func (r Rect) Height() float64 {
	if r.MaxY <= r.MinY {
		return 0
	}
	return r.MaxY - r.MinY
}

// Area returns the area of the rectangle, or 0 if empty.
func (r Rect) Area() float64 {
	return r.Width() * r.Height()
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

// Intersection returns the area of overlap between two rectangles.
// Disjoint rectangles yield 0.
func Intersection(a, b Rect) float64 {
	minX := math.Max(a.MinX, b.MinX)
	minY := math.Max(a.MinY, b.MinY)
	maxX := math.Min(a.MaxX, b.MaxX)
	maxY := math.Min(a.MaxY, b.MaxY)

	if maxX <= minX || maxY <= minY {
		return 0
	}
	return (maxX - minX) * (maxY - minY)
}

// Union returns the combined area covered by two rectangles
// (inclusion–exclusion over their intersection).
func Union(a, b Rect) float64 {
	return a.Area() + b.Area() - Intersection(a, b)
}

// IoU returns the Intersection-over-Union of two rectangles in [0,1].
//
// IoU is the standard overlap measure for detection deduplication: 1.0
// means identical boxes, 0 means disjoint. A union of zero area (two
// degenerate rectangles) returns 0 rather than NaN.
func IoU(a, b Rect) float64 {
	union := Union(a, b)
	if union <= 0 {
		return 0
	}
	return Intersection(a, b) / union
}
