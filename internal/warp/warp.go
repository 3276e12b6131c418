// Package warp applies the geometric perspective correction that maps a
// detected page quadrilateral onto an upright rectangle.
package warp

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/pagescan/pagescan/internal/detect"
	"github.com/pagescan/pagescan/internal/geometry"
)

// Correct warps the region of img bounded by the candidate's corners into
// an upright rectangle that fills the output frame.
//
// The candidate's corners are expected in the normalized unit frame with
// the clockwise-from-top-left ordering. If the ordering invariant is
// violated the output is a mirrored or rotated page, not an error: the
// transform is defined purely by the four point correspondences.
//
// Output dimensions are derived from the average lengths of opposing edges
// in pixel space, so the corrected page keeps its physical proportions.
// Degenerate quadrilaterals (near-zero edge lengths, unsolvable transform)
// return an error rather than a crash.
func Correct(img image.Image, c detect.Candidate) (image.Image, error) {
	bounds := img.Bounds()
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("cannot correct empty image")
	}

	// Corners back into pixel space.
	src := [4]geometry.Point{
		{X: c.TopLeft.X * w, Y: c.TopLeft.Y * h},
		{X: c.TopRight.X * w, Y: c.TopRight.Y * h},
		{X: c.BottomRight.X * w, Y: c.BottomRight.Y * h},
		{X: c.BottomLeft.X * w, Y: c.BottomLeft.Y * h},
	}

	outW, outH := outputSize(src)
	if outW < 1 || outH < 1 {
		return nil, fmt.Errorf("degenerate quadrilateral: computed output %dx%d", outW, outH)
	}

	// Homography from destination rectangle corners to source quad corners,
	// so each output pixel is inverse-mapped and sampled bilinearly.
	dst := [4]geometry.Point{
		{X: 0, Y: 0},
		{X: float64(outW - 1), Y: 0},
		{X: float64(outW - 1), Y: float64(outH - 1)},
		{X: 0, Y: float64(outH - 1)},
	}

	hm, ok := homography(dst, src)
	if !ok {
		return nil, fmt.Errorf("perspective transform is unsolvable for these corners")
	}

	out := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			sx, sy := hm.apply(float64(x), float64(y))
			out.Set(x, y, sampleBilinear(img, sx+float64(bounds.Min.X), sy+float64(bounds.Min.Y)))
		}
	}

	return cropToContent(out), nil
}

// outputSize derives the corrected page dimensions from the average lengths
// of opposing quadrilateral edges in pixel space.
func outputSize(q [4]geometry.Point) (int, int) {
	top := geometry.Distance(q[0], q[1])
	bottom := geometry.Distance(q[3], q[2])
	left := geometry.Distance(q[0], q[3])
	right := geometry.Distance(q[1], q[2])

	return int(math.Round((top + bottom) / 2)), int(math.Round((left + right) / 2))
}

// cropToContent tightens the output to its content bounds. The current
// behavior is a pass-through: the warp already fills the frame edge to
// edge. Kept as the extension point for future tightening of the crop box.
func cropToContent(img image.Image) image.Image {
	return img
}

// matrix3 is a 3×3 projective transform stored row-major.
type matrix3 [9]float64

// apply maps (x, y, 1) through the matrix and dehomogenizes. A zero
// denominator maps far outside any image so the sample clamps to black.
func (m matrix3) apply(x, y float64) (float64, float64) {
	denom := m[6]*x + m[7]*y + m[8]
	if denom == 0 {
		return math.Inf(-1), math.Inf(-1)
	}
	return (m[0]*x + m[1]*y + m[2]) / denom,
		(m[3]*x + m[4]*y + m[5]) / denom
}

// homography computes the 3×3 matrix mapping p[i] to q[i] for the four
// point correspondences, fixing h22 = 1. The 8 unknowns are solved from an
// augmented 8×9 system by Gaussian elimination with partial pivoting.
// Returns ok as false when the system is singular.
func homography(p, q [4]geometry.Point) (matrix3, bool) {
	var m [8][9]float64
	for i := 0; i < 4; i++ {
		sx, sy := p[i].X, p[i].Y
		dx, dy := q[i].X, q[i].Y

		r := 2 * i
		// dx = (h0 sx + h1 sy + h2) / (h6 sx + h7 sy + 1)
		m[r] = [9]float64{sx, sy, 1, 0, 0, 0, -sx * dx, -sy * dx, dx}
		// dy = (h3 sx + h4 sy + h5) / (h6 sx + h7 sy + 1)
		m[r+1] = [9]float64{0, 0, 0, sx, sy, 1, -sx * dy, -sy * dy, dy}
	}

	h, ok := solveAugmented(&m)
	if !ok {
		return matrix3{}, false
	}
	return matrix3{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, true
}

// solveAugmented reduces the 8×9 augmented system to reduced row echelon
// form in place and reads off the solution column.
func solveAugmented(m *[8][9]float64) ([8]float64, bool) {
	for col := 0; col < 8; col++ {
		// Partial pivot: largest magnitude in this column.
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if m[pivot][col] == 0 {
			return [8]float64{}, false
		}
		m[col], m[pivot] = m[pivot], m[col]

		div := m[col][col]
		for c := col; c < 9; c++ {
			m[col][c] /= div
		}

		for r := 0; r < 8; r++ {
			if r == col {
				continue
			}
			factor := m[r][col]
			if factor == 0 {
				continue
			}
			for c := col; c < 9; c++ {
				m[r][c] -= factor * m[col][c]
			}
		}
	}

	var x [8]float64
	for i := 0; i < 8; i++ {
		x[i] = m[i][8]
	}
	return x, true
}

// sampleBilinear samples src at a fractional coordinate, blending the four
// surrounding pixels. Coordinates outside the image clamp to opaque black.
func sampleBilinear(src image.Image, x, y float64) color.Color {
	b := src.Bounds()
	if x < float64(b.Min.X) || y < float64(b.Min.Y) ||
		x > float64(b.Max.X-1) || y > float64(b.Max.Y-1) {
		return color.RGBA{0, 0, 0, 255}
	}

	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= b.Max.X {
		x1 = b.Max.X - 1
	}
	if y1 >= b.Max.Y {
		y1 = b.Max.Y - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)

	c00 := channels(src.At(x0, y0))
	c10 := channels(src.At(x1, y0))
	c01 := channels(src.At(x0, y1))
	c11 := channels(src.At(x1, y1))

	var out [4]uint8
	for i := 0; i < 4; i++ {
		top := c00[i] + (c10[i]-c00[i])*fx
		bot := c01[i] + (c11[i]-c01[i])*fx
		out[i] = uint8(top + (bot-top)*fy + 0.5)
	}
	return color.RGBA{out[0], out[1], out[2], out[3]}
}

func channels(c color.Color) [4]float64 {
	r, g, b, a := c.RGBA()
	return [4]float64{float64(r >> 8), float64(g >> 8), float64(b >> 8), float64(a >> 8)}
}
