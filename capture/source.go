// Package capture provides frame sources backed by OpenCV video capture.
package capture

import (
	"strconv"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Source supplies BGR frames one at a time
type Source interface {
	// Read fills frame with the next image. False means the stream is over or broken
	Read(frame *gocv.Mat) bool
	Close() error
}

var _ Source = (*VideoSource)(nil)

// VideoSource reads frames from a camera or a video file/stream
type VideoSource struct {
	capture *gocv.VideoCapture
	name    string
}

// Open opens camera when source is an integer index, video file or stream URL otherwise
func Open(source string) (*VideoSource, error) {
	var device interface{} = source
	if idx, err := strconv.Atoi(source); err == nil {
		device = idx
	}
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open video source %s", source)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Errorf("video source %s is not opened", source)
	}
	return &VideoSource{
		capture: capture,
		name:    source,
	}, nil
}

func (vs *VideoSource) Read(frame *gocv.Mat) bool {
	if ok := vs.capture.Read(frame); !ok {
		return false
	}
	return !frame.Empty()
}

// Name returns source identifier as it was passed to Open
func (vs *VideoSource) Name() string {
	return vs.name
}

// Size returns frame width and height reported by the backend
func (vs *VideoSource) Size() (int, int) {
	return int(vs.capture.Get(gocv.VideoCaptureFrameWidth)), int(vs.capture.Get(gocv.VideoCaptureFrameHeight))
}

func (vs *VideoSource) Close() error {
	return vs.capture.Close()
}
