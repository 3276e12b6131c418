package pipeline

import "fmt"

// Code classifies pipeline failures for structured handling.
type Code string

const (
	// CodeInvalidInput means the input image cannot be represented.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeDetectionUnavailable means a detector call itself failed. This is
	// distinct from a detector returning zero candidates, which is not an
	// error. Detection failures are absorbed by the pipeline and never
	// surfaced to the caller; the code exists for logging and inspection.
	CodeDetectionUnavailable Code = "DETECTION_UNAVAILABLE"

	// CodeConversionFailed means the final image could not be materialized.
	CodeConversionFailed Code = "CONVERSION_FAILED"
)

// Error is a structured pipeline failure carrying the failing stage and
// the request it belongs to.
type Error struct {
	Code      Code
	Stage     Stage
	RequestID string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s at %s: %s: %v", e.Code, e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Stage, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
