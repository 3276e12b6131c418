// Package detect locates the quadrilateral boundary of a photographed
// document page and selects the single best candidate when several are
// proposed.
//
// The package is organized around a small set of value types and pure
// functions:
//
//   - Candidate is an immutable quadrilateral with detector confidence and
//     derived bounding box, area, aspect ratio, and center.
//   - Score computes a weighted five-factor desirability score for one
//     candidate; Regularity is its rectangle-likeness sub-score.
//   - SelectBest ranks a pool of candidates and returns the winner.
//   - Aggregator runs a Detector at several image scales concurrently,
//     reconciles coordinates into a common normalized frame, and merges the
//     results with overlap-based deduplication.
//
// The raw detector is an external capability behind the Detector interface;
// ContourDetector is the built-in contour-based implementation. Candidates
// cross the Detector boundary in pixel coordinates and everything above the
// Aggregator works in the normalized unit frame.
package detect
