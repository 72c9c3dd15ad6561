// Package report turns tracking state into per-frame reports and publishes them to non-visual sinks.
package report

import (
	"time"

	"github.com/LdDl/refdist-go/refdist"
)

// Object is a serializable view of a detected object
type Object struct {
	ID       string            `json:"id"`
	Tag      string            `json:"tag,omitempty"`
	Color    string            `json:"color"`
	Centroid [2]int            `json:"centroid"`
	BBox     [4]int            `json:"bbox"` // x, y, width, height
	Area     float64           `json:"area"`
	Distance *refdist.Distance `json:"distance,omitempty"`
}

// Scale is a serializable view of the calibration
type Scale struct {
	Calibrated          bool    `json:"calibrated"`
	PixelsPerCentimeter float64 `json:"pixels_per_cm,omitempty"`
}

// Frame is the outcome of processing a single frame
type Frame struct {
	Sequence  uint64        `json:"sequence"`
	Timestamp time.Time     `json:"timestamp"`
	Phase     refdist.Phase `json:"phase"`
	Session   string        `json:"session,omitempty"`
	Reference *Object       `json:"reference,omitempty"`
	Measured  []Object      `json:"measured"`
	// Measured object closest to the reference
	Nearest   *Object       `json:"nearest,omitempty"`
	Scale     Scale         `json:"scale"`
}

func newObject(obj refdist.ObjectDescriptor) Object {
	return Object{
		ID:       obj.ID.String(),
		Color:    obj.Color,
		Centroid: [2]int{obj.Centroid.X, obj.Centroid.Y},
		BBox:     [4]int{obj.BBox.Min.X, obj.BBox.Min.Y, obj.BBox.Dx(), obj.BBox.Dy()},
		Area:     obj.Area,
	}
}

func newMeasuredObject(measured refdist.MeasuredObject) Object {
	obj := newObject(measured.ObjectDescriptor)
	distance := measured.DistanceFromReference
	obj.Distance = &distance
	return obj
}

// NewFrame snapshots tracking state
func NewFrame(sequence uint64, timestamp time.Time, state *refdist.TrackingState) Frame {
	scale := state.Scale()
	frame := Frame{
		Sequence:  sequence,
		Timestamp: timestamp,
		Phase:     state.Phase(),
		Measured:  make([]Object, 0),
		Scale: Scale{
			Calibrated:          scale.Calibrated,
			PixelsPerCentimeter: scale.PixelsPerCentimeter,
		},
	}
	if ref, ok := state.Reference(); ok {
		obj := newObject(ref.ObjectDescriptor)
		obj.Tag = ref.Tag
		frame.Reference = &obj
		frame.Session = ref.SessionID.String()
	}
	for _, measured := range state.Measured() {
		frame.Measured = append(frame.Measured, newMeasuredObject(measured))
	}
	if nearest := state.Nearest(1); len(nearest) == 1 {
		obj := newMeasuredObject(nearest[0])
		frame.Nearest = &obj
	}
	return frame
}
