package refdist

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultMatchRadius is max centroid distance (pixels) for a detection to be treated as the reference
	DefaultMatchRadius = 50.0
)

// Phase is the state of TrackingState
type Phase uint8

const (
	// PhaseUninitialized means no reference object has been adopted yet
	PhaseUninitialized Phase = iota
	// PhaseAnchored means reference object is set
	PhaseAnchored
)

func (p Phase) String() string {
	if p == PhaseAnchored {
		return "anchored"
	}
	return "uninitialized"
}

// MarshalText makes phase human-readable in JSON reports
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "anchored":
		*p = PhaseAnchored
	case "uninitialized":
		*p = PhaseUninitialized
	default:
		return errors.Errorf("unknown tracking phase %q", text)
	}
	return nil
}

// TrackingState holds the reference object, the latest measured set and the calibration scale.
// It does re-detection plus reference anchoring: there is no identity for objects other than the reference.
// TrackingState is not safe for concurrent use. Zero value is usable with match radius of 0 (every detection is measured).
type TrackingState struct {
	reference *ReferenceObject
	measured  []MeasuredObject
	scale     CalibrationScale
	// Threshold distance in pixels. Default 50.0
	matchRadius float64
	logger      logrus.FieldLogger
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// log returns configured logger. Zero value TrackingState has none
func (ts *TrackingState) log() logrus.FieldLogger {
	if ts.logger == nil {
		ts.logger = discardLogger()
	}
	return ts.logger
}

// TrackingOption customizes TrackingState
type TrackingOption func(*TrackingState)

// WithLogger sets logger for state transitions
func WithLogger(logger logrus.FieldLogger) TrackingOption {
	return func(ts *TrackingState) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTrackingStateDefault creates default instance of TrackingState
func NewTrackingStateDefault(options ...TrackingOption) *TrackingState {
	return NewTrackingState(DefaultMatchRadius, options...)
}

// NewTrackingState creates new instance of TrackingState
func NewTrackingState(matchRadius float64, options ...TrackingOption) *TrackingState {
	ts := &TrackingState{
		measured:    make([]MeasuredObject, 0),
		matchRadius: matchRadius,
		logger:      discardLogger(),
	}
	for _, option := range options {
		option(ts)
	}
	return ts
}

// Phase returns current state
func (ts *TrackingState) Phase() Phase {
	if ts.reference == nil {
		return PhaseUninitialized
	}
	return PhaseAnchored
}

// Reference returns reference object if it has been adopted
func (ts *TrackingState) Reference() (ReferenceObject, bool) {
	if ts.reference == nil {
		return ReferenceObject{}, false
	}
	return *ts.reference, true
}

// Measured returns copy of the current measured set
func (ts *TrackingState) Measured() []MeasuredObject {
	measured := make([]MeasuredObject, len(ts.measured))
	copy(measured, ts.measured)
	return measured
}

// Scale returns current calibration scale
func (ts *TrackingState) Scale() CalibrationScale {
	return ts.scale
}

// Update consumes detections of a single frame.
//
// First non-empty set of detections after start (or reset) adopts its first element as the reference.
// After that, detections which coincide with the reference are skipped and all others replace the measured set.
func (ts *TrackingState) Update(detections []ObjectDescriptor) {
	if ts.reference == nil {
		if len(detections) == 0 {
			return
		}
		ref := newReferenceObject(detections[0])
		ts.reference = &ref
		ts.measured = ts.measured[:0]
		ts.log().WithFields(logrus.Fields{
			"color":    ref.Color,
			"centroid": ref.Centroid.String(),
			"session":  ref.SessionID.String(),
		}).Info("Reference object set")
		return
	}

	measured := make([]MeasuredObject, 0, len(detections))
	for _, detection := range detections {
		if ts.isReference(detection) {
			continue
		}
		distancePx := ts.reference.PixelDistanceTo(detection)
		measured = append(measured, MeasuredObject{
			ObjectDescriptor:      detection,
			DistanceFromReference: ts.scale.Measure(distancePx),
			ReferenceCentroid:     ts.reference.Centroid,
		})
	}
	ts.measured = measured
}

// isReference checks whether detection is a re-detection of the reference object
func (ts *TrackingState) isReference(detection ObjectDescriptor) bool {
	return ts.reference.PixelDistanceTo(detection) < ts.matchRadius
}

// Reset forgets reference object and measured set. Calibration scale is kept
func (ts *TrackingState) Reset() {
	ts.reference = nil
	ts.measured = make([]MeasuredObject, 0)
	ts.log().Info("Tracking reset")
}

// SetScale applies calibration. Allowed in any phase and overwrites previous calibration
func (ts *TrackingState) SetScale(scale CalibrationScale) error {
	if !scale.Calibrated || scale.PixelsPerCentimeter <= 0 {
		return errors.Wrapf(ErrInvalidScale, "can't apply scale %f px/cm", scale.PixelsPerCentimeter)
	}
	ts.scale = scale
	ts.log().WithField("px_per_cm", scale.PixelsPerCentimeter).Info("Calibration applied")
	return nil
}

// Nearest returns up to n measured objects ordered by ascending distance from the reference.
// Objects at equal distance keep detection order
func (ts *TrackingState) Nearest(n int) []MeasuredObject {
	n = maxInt(n, 0)
	priorityQueue := make(distanceHeap, 0, len(ts.measured))
	for i := range ts.measured {
		priorityQueue.Push(&distanceItem{
			underlying: ts.measured[i],
			distance:   ts.measured[i].DistanceFromReference.Value,
			order:      i,
		})
	}
	if n > priorityQueue.Len() {
		n = priorityQueue.Len()
	}
	nearest := make([]MeasuredObject, 0, n)
	for len(nearest) < n {
		nearest = append(nearest, priorityQueue.Pop().underlying)
	}
	return nearest
}
