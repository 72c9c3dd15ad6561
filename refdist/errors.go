package refdist

import "github.com/pkg/errors"

var (
	// ErrReferenceCardNotFound is returned when calibration could not find a quadrilateral in the frame.
	// Previous calibration stays untouched, so caller may retry on any next frame
	ErrReferenceCardNotFound = errors.New("reference card not found")
	// ErrInvalidScale is returned for non-positive pixels-per-centimeter values
	ErrInvalidScale = errors.New("pixels per centimeter must be positive")
)
