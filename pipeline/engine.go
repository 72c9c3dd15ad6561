// Package pipeline glues detection, calibration and tracking into a frame-at-a-time engine.
package pipeline

import (
	"io"
	"sync"
	"time"

	"github.com/LdDl/refdist-go/refdist"
	"github.com/LdDl/refdist-go/report"
	"github.com/LdDl/refdist-go/vision"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const (
	defaultQueueSize = 16
)

// Engine owns tracking state and serializes every mutation of it on the goroutine calling Process.
// Other goroutines may only Submit commands and read Snapshot
type Engine struct {
	detector   *vision.Detector
	calibrator *vision.Calibrator
	state      *refdist.TrackingState
	logger     logrus.FieldLogger

	queue    chan request
	sequence uint64

	snapshotMu sync.RWMutex
	snapshot   report.Frame

	done     chan struct{}
	doneOnce sync.Once
}

// EngineOption customizes Engine
type EngineOption func(*Engine)

// WithEngineLogger sets logger
func WithEngineLogger(logger logrus.FieldLogger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithQueueSize sets capacity of pending command queue
func WithQueueSize(size int) EngineOption {
	return func(e *Engine) {
		if size > 0 {
			e.queue = make(chan request, size)
		}
	}
}

// NewEngine creates engine
func NewEngine(detector *vision.Detector, calibrator *vision.Calibrator, state *refdist.TrackingState, options ...EngineOption) *Engine {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	e := &Engine{
		detector:   detector,
		calibrator: calibrator,
		state:      state,
		logger:     discard,
		queue:      make(chan request, defaultQueueSize),
		done:       make(chan struct{}),
	}
	for _, option := range options {
		option(e)
	}
	e.snapshot = report.NewFrame(0, time.Now(), state)
	return e
}

// NewEngineDefault creates engine with default detector, A4 calibrator and 50 px match radius
func NewEngineDefault(options ...EngineOption) *Engine {
	return NewEngine(
		vision.NewDetectorDefault(),
		vision.NewCalibrator(vision.DefaultCalibratorConfig()),
		refdist.NewTrackingStateDefault(),
		options...,
	)
}

// State returns underlying tracking state. It must only be used on the processing goroutine
func (e *Engine) State() *refdist.TrackingState {
	return e.state
}

// DetectAll runs object detection over all color bands
func (e *Engine) DetectAll(frame gocv.Mat) []refdist.ObjectDescriptor {
	return e.detector.DetectAll(frame)
}

// Update feeds detections of a frame into tracking state
func (e *Engine) Update(detections []refdist.ObjectDescriptor) {
	e.state.Update(detections)
}

// Calibrate searches the frame for the reference card and applies the scale on success.
// On failure previous calibration is kept
func (e *Engine) Calibrate(frame gocv.Mat) error {
	scale, err := e.calibrator.Estimate(frame)
	if err != nil {
		e.logger.WithError(err).Warn("Calibration failed. Ensure reference card is visible")
		return err
	}
	if err := e.state.SetScale(scale); err != nil {
		return errors.Wrap(err, "can't apply calibration")
	}
	e.logger.WithFields(logrus.Fields{
		"px_per_cm": scale.PixelsPerCentimeter,
		"card":      scale.CardBox.String(),
	}).Info("Calibration successful")
	return nil
}

// Reset forgets reference object and measured set, calibration is kept
func (e *Engine) Reset() {
	e.state.Reset()
}

// Process applies pending commands against the frame, then runs detection and tracking.
// Returned report is also published as the latest snapshot
func (e *Engine) Process(frame gocv.Mat) report.Frame {
	e.drain(frame)
	e.Update(e.DetectAll(frame))
	e.sequence++
	snapshot := report.NewFrame(e.sequence, time.Now(), e.state)
	e.snapshotMu.Lock()
	e.snapshot = snapshot
	e.snapshotMu.Unlock()
	return snapshot
}

// Execute runs command synchronously on the calling goroutine
func (e *Engine) Execute(cmd Command, frame gocv.Mat) CommandResult {
	result := CommandResult{Command: cmd}
	switch cmd {
	case CommandCalibrate:
		result.Err = e.Calibrate(frame)
	case CommandReset:
		e.Reset()
	case CommandQuit:
		e.doneOnce.Do(func() { close(e.done) })
	default:
		result.Err = errors.Errorf("unknown command %d", cmd)
	}
	result.Scale = e.state.Scale()
	return result
}

// Submit queues command to be executed before the next processed frame.
// Result is delivered on the returned channel (buffered, may be ignored)
func (e *Engine) Submit(cmd Command) <-chan CommandResult {
	reply := make(chan CommandResult, 1)
	select {
	case e.queue <- request{cmd: cmd, reply: reply}:
	default:
		reply <- CommandResult{Command: cmd, Err: errors.Errorf("command queue is full, %s dropped", cmd)}
	}
	return reply
}

// Snapshot returns the latest frame report. Safe for concurrent use
func (e *Engine) Snapshot() report.Frame {
	e.snapshotMu.RLock()
	defer e.snapshotMu.RUnlock()
	return e.snapshot
}

// Done is closed once quit command has been executed
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) drain(frame gocv.Mat) {
	for {
		select {
		case req := <-e.queue:
			e.logger.WithField("command", req.cmd.String()).Debug("Executing queued command")
			req.reply <- e.Execute(req.cmd, frame)
		default:
			return
		}
	}
}
