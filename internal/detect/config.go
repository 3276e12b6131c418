package detect

// Config is the immutable parameter set consumed by detectors and by the
// multi-scale aggregator. The zero value is not useful; start from
// DefaultConfig and override fields as needed.
type Config struct {
	// MinConfidence is the minimum detector confidence for a candidate to
	// be reported (0.0 to 1.0).
	MinConfidence float64 `json:"min_confidence"`

	// MinAspectRatio and MaxAspectRatio bound the accepted bounding-box
	// width/height ratio. Candidates outside the window are discarded by
	// the detector.
	MinAspectRatio float64 `json:"min_aspect_ratio"`
	MaxAspectRatio float64 `json:"max_aspect_ratio"`

	// MaxObservations caps how many candidates a single detector call may
	// return. The highest-confidence candidates are kept.
	MaxObservations int `json:"max_observations"`

	// AngularTolerance is the maximum deviation, in degrees, of any interior
	// angle from 90° for a candidate to count as rectangle-like.
	AngularTolerance float64 `json:"angular_tolerance"`

	// Scales lists the image scale factors sampled by multi-scale detection.
	Scales []float64 `json:"scales"`
}

// DefaultConfig returns the detection parameters used when the caller does
// not supply its own. The scale set {1.0, 0.75, 0.5} trades detection
// recall against per-frame cost.
func DefaultConfig() Config {
	return Config{
		MinConfidence:    0.6,
		MinAspectRatio:   0.3,
		MaxAspectRatio:   3.0,
		MaxObservations:  10,
		AngularTolerance: 30,
		Scales:           []float64{1.0, 0.75, 0.5},
	}
}
