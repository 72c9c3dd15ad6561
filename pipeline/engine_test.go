package pipeline

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/LdDl/refdist-go/refdist"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

func sceneFrame(rects map[image.Rectangle]color.RGBA) gocv.Mat {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	for r, c := range rects {
		gocv.Rectangle(&frame, r, c, -1)
	}
	return frame
}

var (
	blueBlob  = image.Rect(100, 100, 160, 140) // centroid (130, 120)
	greenBlob = image.Rect(400, 100, 460, 140) // centroid (430, 120)
	card      = image.Rect(100, 250, 310, 400) // 211 px wide
	blue      = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	green     = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	white     = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

func TestProcess(t *testing.T) {
	engine := NewEngineDefault()
	frame := sceneFrame(map[image.Rectangle]color.RGBA{blueBlob: blue, greenBlob: green})
	defer frame.Close()

	first := engine.Process(frame)
	if first.Phase != refdist.PhaseAnchored || first.Reference == nil {
		t.Fatalf("First frame should adopt reference, got %+v", first)
	}
	// Blue comes before green in the color table
	if first.Reference.Color != "blue" {
		t.Errorf("Expected blue reference, got %s", first.Reference.Color)
	}
	if len(first.Measured) != 0 {
		t.Errorf("Adoption frame should not measure, got %d", len(first.Measured))
	}

	second := engine.Process(frame)
	if len(second.Measured) != 1 {
		t.Fatalf("Expected 1 measured object, got %d", len(second.Measured))
	}
	d := second.Measured[0].Distance
	if d.Unit != refdist.UnitPixels || math.Abs(d.Value-300) > 1 {
		t.Errorf("Expected ~300 px, got %v", d)
	}
	if second.Sequence != 2 {
		t.Errorf("Expected sequence 2, got %d", second.Sequence)
	}
	if engine.Snapshot().Sequence != 2 {
		t.Errorf("Snapshot should follow the last processed frame")
	}
}

func TestQueuedResetAppliesBeforeUpdate(t *testing.T) {
	engine := NewEngineDefault()
	both := sceneFrame(map[image.Rectangle]color.RGBA{blueBlob: blue, greenBlob: green})
	defer both.Close()
	onlyGreen := sceneFrame(map[image.Rectangle]color.RGBA{greenBlob: green})
	defer onlyGreen.Close()

	engine.Process(both)
	reply := engine.Submit(CommandReset)
	select {
	case <-reply:
		t.Fatal("Command must not run before the next frame")
	default:
	}
	rep := engine.Process(onlyGreen)
	result := <-reply
	if result.Err != nil {
		t.Fatal(result.Err)
	}
	if rep.Reference == nil || rep.Reference.Color != "green" {
		t.Errorf("Reset should let next frame adopt a new reference, got %+v", rep.Reference)
	}
	if len(rep.Measured) != 0 {
		t.Errorf("Adoption frame should not measure")
	}
}

func TestCalibrateCommand(t *testing.T) {
	engine := NewEngineDefault()
	empty := sceneFrame(nil)
	defer empty.Close()
	withCard := sceneFrame(map[image.Rectangle]color.RGBA{card: white, greenBlob: green})
	defer withCard.Close()

	reply := engine.Submit(CommandCalibrate)
	engine.Process(empty)
	failed := <-reply
	if !errors.Is(failed.Err, refdist.ErrReferenceCardNotFound) {
		t.Errorf("Expected ErrReferenceCardNotFound, got %v", failed.Err)
	}
	if failed.Scale.Calibrated {
		t.Error("Failed calibration must not set scale")
	}

	reply = engine.Submit(CommandCalibrate)
	rep := engine.Process(withCard)
	ok := <-reply
	if ok.Err != nil {
		t.Fatal(ok.Err)
	}
	expected := 211.0 / 21.0
	if math.Abs(ok.Scale.PixelsPerCentimeter-expected) > 0.00001 {
		t.Errorf("Wrong scale: %v, correct answer: %v", ok.Scale.PixelsPerCentimeter, expected)
	}
	if !rep.Scale.Calibrated {
		t.Error("Report should carry calibration")
	}

	// Failed recalibration keeps previous scale
	if err := engine.Calibrate(empty); err == nil {
		t.Error("Expected calibration failure")
	}
	if math.Abs(engine.State().Scale().PixelsPerCentimeter-expected) > 0.00001 {
		t.Error("Failed calibration must keep previous scale")
	}
}

func TestQuitCommand(t *testing.T) {
	engine := NewEngineDefault()
	frame := sceneFrame(nil)
	defer frame.Close()
	engine.Submit(CommandQuit)
	engine.Submit(CommandQuit)
	engine.Process(frame)
	select {
	case <-engine.Done():
	default:
		t.Error("Engine should be done after quit")
	}
}

func TestSubmitQueueFull(t *testing.T) {
	engine := NewEngineDefault(WithQueueSize(1))
	engine.Submit(CommandReset)
	result := <-engine.Submit(CommandReset)
	if result.Err == nil {
		t.Error("Expected error when queue is full")
	}
}

func TestCommandMapping(t *testing.T) {
	tests := []struct {
		key    int
		expect Command
		ok     bool
	}{
		{key: 'c', expect: CommandCalibrate, ok: true},
		{key: 'r', expect: CommandReset, ok: true},
		{key: 'q', expect: CommandQuit, ok: true},
		{key: 27, expect: CommandQuit, ok: true},
		{key: 0x100 | 'r', expect: CommandReset, ok: true},
		{key: -1, ok: false},
		{key: 'x', ok: false},
	}
	for _, tc := range tests {
		cmd, ok := CommandFromKey(tc.key)
		if ok != tc.ok || (ok && cmd != tc.expect) {
			t.Errorf("Key %d: got (%s, %v), want (%s, %v)", tc.key, cmd, ok, tc.expect, tc.ok)
		}
	}
	for _, cmd := range []Command{CommandCalibrate, CommandReset, CommandQuit} {
		parsed, ok := ParseCommand(cmd.String())
		if !ok || parsed != cmd {
			t.Errorf("Can't parse %s", cmd)
		}
	}
	if _, ok := ParseCommand("explode"); ok {
		t.Error("Unknown command should not parse")
	}
}
