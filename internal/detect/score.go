package detect

import (
	"math"

	"github.com/pagescan/pagescan/internal/geometry"
)

// Scoring weights. The five sub-scores are each normalized to [0,1] before
// weighting, so the weighted sum cannot legitimately exceed 1.
const (
	weightConfidence = 0.30
	weightSize       = 0.25
	weightAspect     = 0.20
	weightPosition   = 0.15
	weightRegularity = 0.10

	// targetAspect is 1:√2, the proportion of an ISO paper page.
	targetAspect = 0.7071

	// aspectFalloff is the deviation from targetAspect at which the aspect
	// sub-score reaches zero.
	aspectFalloff = 0.3
)

// UnitFrame is the default reference frame: the full image normalized to
// the unit square.
var UnitFrame = geometry.Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}

// Score computes the normalized desirability of a candidate within a frame.
//
// The score is a weighted sum of five independent sub-scores:
//
//	Confidence (0.30)  detector-reported confidence, used directly
//	Size       (0.25)  min(area × 2, 1), saturating once the candidate
//	                   covers half the frame
//	Aspect     (0.20)  linear falloff from the 1:√2 page proportion,
//	                   zero beyond a 0.3 deviation
//	Position   (0.15)  1 − min(2 × distance(center, frameCenter), 1)
//	Regularity (0.10)  Regularity(c), see below
//
// Returns a value in [0,1]; the sum is clamped after weighting to guard
// against compounding rounding. The function is pure and never fails:
// degenerate geometry (a zero-area bounding box) contributes 0 to the
// affected factors instead of propagating NaN.
func Score(c Candidate, frame geometry.Rect) float64 {
	frameArea := frame.Area()

	var size float64
	if frameArea > 0 {
		size = math.Min(c.Area()/frameArea*2.0, 1.0)
	}

	// A zero-height box reports an aspect ratio of 0, which lands at the
	// maximum deviation and zeroes the factor.
	deviation := math.Min(math.Abs(c.AspectRatio()-targetAspect)/aspectFalloff, 1.0)
	aspect := 1.0 - deviation

	position := 1.0 - math.Min(2.0*geometry.Distance(c.Center(), frame.Center()), 1.0)

	score := weightConfidence*c.Confidence +
		weightSize*size +
		weightAspect*aspect +
		weightPosition*position +
		weightRegularity*Regularity(c)

	return clamp01(score)
}

// Regularity measures how close a candidate is to a true rectangle,
// returning a raw estimate in [0,1]. The caller (Score) applies the 0.10
// factor weight separately.
//
// # Algorithm
//
//  1. Compute the four edge lengths walking the corners clockwise.
//  2. Length consistency = mean / stddev of the edge lengths when the
//     stddev is positive, else 1.0 (perfectly consistent). This inverse
//     coefficient of variation is unbounded above and only meaningful as a
//     component of the bounded combination below.
//  3. Compute the four interior angles from consecutive corner triples.
//  4. Angle regularity = 1 − min(meanAbsDeviationFrom90° / 45°, 1).
//  5. Combined = (lengthConsistency × 0.5 + angleRegularity × 0.5) × 0.5.
//     The trailing ×0.5 compresses the partly unbounded consistency term
//     back toward a usable range. It is an empirical damping constant and
//     is part of the scoring contract; a perfect rectangle evaluates to
//     exactly 0.5.
//
// Degenerate candidates (collinear or coincident corners) produce 90° for
// the undefined angles via geometry.InteriorAngle and are never an error.
func Regularity(c Candidate) float64 {
	pts := c.corners()

	var lengths [4]float64
	var sum float64
	for i := 0; i < 4; i++ {
		lengths[i] = geometry.Distance(pts[i], pts[(i+1)%4])
		sum += lengths[i]
	}
	mean := sum / 4

	var variance float64
	for _, l := range lengths {
		d := l - mean
		variance += d * d
	}
	std := math.Sqrt(variance / 4)

	lengthConsistency := 1.0
	if std > 0 {
		lengthConsistency = mean / std
	}

	var angleDev float64
	for i := 0; i < 4; i++ {
		prev := pts[(i+3)%4]
		next := pts[(i+1)%4]
		angleDev += math.Abs(geometry.InteriorAngle(pts[i], prev, next) - 90)
	}
	angleDev /= 4

	angleRegularity := 1.0 - math.Min(angleDev/45.0, 1.0)

	combined := (lengthConsistency*0.5 + angleRegularity*0.5) * 0.5
	return clamp01(combined)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
