package detect

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/pagescan/pagescan/internal/geometry"
)

// Detector finds quadrilateral page-boundary candidates in an image.
//
// Implementations return candidates with corners in pixel coordinates of
// the image they analyzed; the aggregation layer reconciles those into the
// normalized reference frame. Detect must be safe for concurrent calls:
// the multi-scale aggregator invokes it from one goroutine per scale.
//
// An error indicates the detection call itself failed (the detector was
// unavailable). Finding zero candidates is not an error; implementations
// return an empty slice.
type Detector interface {
	Detect(ctx context.Context, img image.Image, cfg Config) ([]Candidate, error)
}

// ContourDetector is a contour-based quadrilateral finder.
//
// It substitutes a platform computer-vision backend behind the Detector
// interface: gradient edge detection, flood-fill contour grouping, and a
// rectangularity confidence computed from contour length versus expected
// perimeter. Corner positions are refined by snapping each bounding-box
// corner to the nearest contour point, so tilted pages yield a true
// quadrilateral rather than an axis-aligned box.
//
// The zero value uses sensible defaults; see NewContourDetector.
type ContourDetector struct {
	// EdgeThreshold is the grayscale gradient magnitude (0-255) above which
	// a pixel counts as an edge. Lower values detect more edges but admit
	// noise. Defaults to 30 when zero.
	EdgeThreshold float64

	// MinAreaFraction is the minimum candidate bounding-box area as a
	// fraction of the image area. Defaults to 0.01 when zero.
	MinAreaFraction float64
}

// NewContourDetector returns a detector with the default thresholds.
func NewContourDetector() *ContourDetector {
	return &ContourDetector{EdgeThreshold: 30, MinAreaFraction: 0.01}
}

// Detect finds quadrilateral candidates in img, gated by cfg.
//
// Candidates are returned in pixel coordinates of img, sorted by
// confidence (highest first) and capped at cfg.MaxObservations.
//
// # Gating
//
// A contour survives only if all of the following hold:
//   - its bounding-box area is at least MinAreaFraction of the image
//   - its rectangularity confidence is at least cfg.MinConfidence
//   - its bounding-box aspect ratio lies within
//     [cfg.MinAspectRatio, cfg.MaxAspectRatio]
//   - every interior angle of the refined quadrilateral is within
//     cfg.AngularTolerance degrees of 90°
func (d *ContourDetector) Detect(ctx context.Context, img image.Image, cfg Config) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width < 3 || height < 3 {
		return []Candidate{}, nil
	}

	threshold := d.EdgeThreshold
	if threshold <= 0 {
		threshold = 30
	}
	minAreaFrac := d.MinAreaFraction
	if minAreaFrac <= 0 {
		minAreaFrac = 0.01
	}
	minArea := minAreaFrac * float64(width*height)

	edges := detectEdges(img, width, height, threshold)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contours := findContours(edges, width, height)

	candidates := make([]Candidate, 0)
	for _, contour := range contours {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cand, ok := d.quadFromContour(contour, minArea, cfg)
		if !ok {
			continue
		}
		candidates = append(candidates, cand)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if cfg.MaxObservations > 0 && len(candidates) > cfg.MaxObservations {
		candidates = candidates[:cfg.MaxObservations]
	}

	return candidates, nil
}

// quadFromContour builds a gated candidate from one contour, reporting ok
// as false when any gate rejects it.
func (d *ContourDetector) quadFromContour(contour []pixel, minArea float64, cfg Config) (Candidate, bool) {
	if len(contour) < 4 {
		return Candidate{}, false
	}

	minX, minY := contour[0].x, contour[0].y
	maxX, maxY := minX, minY
	for _, p := range contour[1:] {
		if p.x < minX {
			minX = p.x
		}
		if p.x > maxX {
			maxX = p.x
		}
		if p.y < minY {
			minY = p.y
		}
		if p.y > maxY {
			maxY = p.y
		}
	}

	boxW := maxX - minX
	boxH := maxY - minY
	area := float64(boxW * boxH)
	if area < minArea || boxW == 0 || boxH == 0 {
		return Candidate{}, false
	}

	aspect := float64(boxW) / float64(boxH)
	if aspect < cfg.MinAspectRatio || aspect > cfg.MaxAspectRatio {
		return Candidate{}, false
	}

	// A perfect rectangle's contour length equals its perimeter; deviation
	// from that is the confidence penalty.
	expectedPerimeter := float64(2 * (boxW + boxH))
	confidence := 1.0 - math.Abs(float64(len(contour))-expectedPerimeter)/expectedPerimeter
	confidence = clamp01(confidence)
	if confidence < cfg.MinConfidence {
		return Candidate{}, false
	}

	cand := refineCorners(contour, minX, minY, maxX, maxY)
	cand.Confidence = confidence

	if cfg.AngularTolerance > 0 {
		pts := cand.corners()
		for i := 0; i < 4; i++ {
			angle := geometry.InteriorAngle(pts[i], pts[(i+3)%4], pts[(i+1)%4])
			if math.Abs(angle-90) > cfg.AngularTolerance {
				return Candidate{}, false
			}
		}
	}

	return cand, true
}

// refineCorners snaps each bounding-box corner to the nearest contour point,
// producing the actual quadrilateral corners of a tilted page. Labels follow
// the clockwise-from-top-left invariant by construction.
func refineCorners(contour []pixel, minX, minY, maxX, maxY int) Candidate {
	anchors := [4]pixel{
		{minX, minY}, // top-left
		{maxX, minY}, // top-right
		{maxX, maxY}, // bottom-right
		{minX, maxY}, // bottom-left
	}

	var corners [4]geometry.Point
	for i, a := range anchors {
		best := contour[0]
		bestDist := math.MaxFloat64
		for _, p := range contour {
			dx := float64(p.x - a.x)
			dy := float64(p.y - a.y)
			dist := dx*dx + dy*dy
			if dist < bestDist {
				bestDist = dist
				best = p
			}
		}
		corners[i] = geometry.Point{X: float64(best.x), Y: float64(best.y)}
	}

	return Candidate{
		TopLeft:     corners[0],
		TopRight:    corners[1],
		BottomRight: corners[2],
		BottomLeft:  corners[3],
	}
}

// pixel is an integer coordinate in image space, local to this detector.
type pixel struct {
	x, y int
}

// detectEdges performs gradient-based edge detection on the grayscale image.
//
// Pixels where the horizontal or vertical luminance gradient exceeds the
// threshold are marked as edges. Border pixels are never edges.
func detectEdges(img image.Image, width, height int, threshold float64) [][]bool {
	bounds := img.Bounds()
	edges := make([][]bool, height)

	for y := 0; y < height; y++ {
		edges[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			if x == 0 || y == 0 || x == width-1 || y == height-1 {
				continue
			}

			c := grayValue(img, x+bounds.Min.X, y+bounds.Min.Y)
			cx := grayValue(img, x+1+bounds.Min.X, y+bounds.Min.Y)
			cy := grayValue(img, x+bounds.Min.X, y+1+bounds.Min.Y)

			dx := math.Abs(float64(c) - float64(cx))
			dy := math.Abs(float64(c) - float64(cy))

			if dx > threshold || dy > threshold {
				edges[y][x] = true
			}
		}
	}

	return edges
}

// findContours groups connected edge pixels into contours using
// 8-connected flood fill. Contours under 10 pixels are discarded as noise.
func findContours(edges [][]bool, width, height int) [][]pixel {
	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	contours := make([][]pixel, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges[y][x] && !visited[y][x] {
				contour := traceContour(edges, visited, x, y, width, height)
				if len(contour) >= 10 {
					contours = append(contours, contour)
				}
			}
		}
	}

	return contours
}

// traceContour collects one connected component of edge pixels with an
// iterative stack-based flood fill, avoiding recursion depth limits on
// large page outlines.
func traceContour(edges, visited [][]bool, startX, startY, width, height int) []pixel {
	contour := make([]pixel, 0)
	stack := []pixel{{startX, startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.x < 0 || p.x >= width || p.y < 0 || p.y >= height {
			continue
		}
		if visited[p.y][p.x] || !edges[p.y][p.x] {
			continue
		}

		visited[p.y][p.x] = true
		contour = append(contour, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, pixel{p.x + dx, p.y + dy})
			}
		}
	}

	return contour
}

// grayValue converts a pixel to grayscale using ITU-R BT.601 luminance
// weights: Y = 0.299*R + 0.587*G + 0.114*B.
func grayValue(img image.Image, x, y int) uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(float64(r>>8)*0.299 + float64(g>>8)*0.587 + float64(b>>8)*0.114)
}
