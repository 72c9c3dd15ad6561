package report

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sink consumes frame reports
type Sink interface {
	Publish(ctx context.Context, frame Frame) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, frame Frame) error

func (f SinkFunc) Publish(ctx context.Context, frame Frame) error {
	return f(ctx, frame)
}

// JSONLines writes one JSON document per frame
type JSONLines struct {
	mu      sync.Mutex
	encoder *jsoniter.Encoder
}

func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{
		encoder: json.NewEncoder(w),
	}
}

func (s *JSONLines) Publish(_ context.Context, frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Wrap(s.encoder.Encode(frame), "can't encode frame report")
}

// CSV writes one row per measured object: sequence;timestamp;color;x,y;distance;unit
type CSV struct {
	mu            sync.Mutex
	writer        *csv.Writer
	headerWritten bool
}

func NewCSV(w io.Writer) *CSV {
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	return &CSV{
		writer: writer,
	}
}

func (s *CSV) Publish(_ context.Context, frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.headerWritten {
		err := s.writer.Write([]string{"sequence", "timestamp", "color", "centroid", "distance", "unit"})
		if err != nil {
			return errors.Wrap(err, "can't write CSV header")
		}
		s.headerWritten = true
	}
	seq := strconv.FormatUint(frame.Sequence, 10)
	ts := frame.Timestamp.Format(time.RFC3339Nano)
	for _, obj := range frame.Measured {
		if obj.Distance == nil {
			continue
		}
		err := s.writer.Write([]string{
			seq,
			ts,
			obj.Color,
			strconv.Itoa(obj.Centroid[0]) + "," + strconv.Itoa(obj.Centroid[1]),
			strconv.FormatFloat(obj.Distance.Value, 'f', 3, 64),
			obj.Distance.Unit.String(),
		})
		if err != nil {
			return errors.Wrapf(err, "can't write CSV row for frame %d", frame.Sequence)
		}
	}
	s.writer.Flush()
	return errors.Wrap(s.writer.Error(), "can't flush CSV")
}

// Multi fans out frame to every sink. All sinks are called even if some of them fail
type Multi []Sink

func (m Multi) Publish(ctx context.Context, frame Frame) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.Publish(ctx, frame); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
