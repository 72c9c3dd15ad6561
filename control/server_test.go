package control

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LdDl/refdist-go/pipeline"
	"github.com/LdDl/refdist-go/refdist"
	"github.com/LdDl/refdist-go/report"
)

type fakeCommander struct {
	submitted []pipeline.Command
	result    *pipeline.CommandResult
	snapshot  report.Frame
}

func (f *fakeCommander) Submit(cmd pipeline.Command) <-chan pipeline.CommandResult {
	f.submitted = append(f.submitted, cmd)
	reply := make(chan pipeline.CommandResult, 1)
	if f.result != nil {
		result := *f.result
		result.Command = cmd
		reply <- result
	}
	return reply
}

func (f *fakeCommander) Snapshot() report.Frame {
	return f.snapshot
}

func body(t *testing.T, r io.Reader) string {
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestHandleState(t *testing.T) {
	commander := &fakeCommander{snapshot: report.Frame{Sequence: 12, Phase: refdist.PhaseAnchored}}
	server := NewServer(commander)
	resp, err := server.App().Test(httptest.NewRequest("GET", "/api/state", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	text := body(t, resp.Body)
	if !strings.Contains(text, `"sequence":12`) || !strings.Contains(text, `"phase":"anchored"`) {
		t.Errorf("Unexpected body: %s", text)
	}
}

func TestHandleCommand(t *testing.T) {
	commander := &fakeCommander{result: &pipeline.CommandResult{}}
	server := NewServer(commander)

	resp, err := server.App().Test(httptest.NewRequest("POST", "/api/reset", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if text := body(t, resp.Body); !strings.Contains(text, `"ok":true`) {
		t.Errorf("Unexpected body: %s", text)
	}
	if len(commander.submitted) != 1 || commander.submitted[0] != pipeline.CommandReset {
		t.Errorf("Reset should be submitted, got %v", commander.submitted)
	}

	resp, err = server.App().Test(httptest.NewRequest("POST", "/api/explode", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("Unknown command: expected 404, got %d", resp.StatusCode)
	}
}

func TestHandleCalibrateFailure(t *testing.T) {
	commander := &fakeCommander{result: &pipeline.CommandResult{Err: refdist.ErrReferenceCardNotFound}}
	server := NewServer(commander)
	resp, err := server.App().Test(httptest.NewRequest("POST", "/api/calibrate", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 422 {
		t.Errorf("Expected 422, got %d", resp.StatusCode)
	}
	if text := body(t, resp.Body); !strings.Contains(text, "reference card not found") {
		t.Errorf("Unexpected body: %s", text)
	}
}

func TestHandleCommandQueued(t *testing.T) {
	// Nobody processes frames: request times out but command stays queued
	commander := &fakeCommander{}
	server := NewServer(commander, WithCommandTimeout(50*time.Millisecond))
	resp, err := server.App().Test(httptest.NewRequest("POST", "/api/calibrate", nil), 1000)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 202 {
		t.Errorf("Expected 202, got %d", resp.StatusCode)
	}
	if text := body(t, resp.Body); !strings.Contains(text, `"queued":true`) {
		t.Errorf("Unexpected body: %s", text)
	}
}

func TestWebSocketUpgradeRequired(t *testing.T) {
	server := NewServer(&fakeCommander{})
	resp, err := server.App().Test(httptest.NewRequest("GET", "/ws/reports", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 426 {
		t.Errorf("Expected 426, got %d", resp.StatusCode)
	}
	if err := server.Publish(context.Background(), report.Frame{}); err != nil {
		t.Errorf("Publish without clients should be no-op, got %v", err)
	}
	if server.Clients() != 0 {
		t.Errorf("Expected no clients")
	}
}

func TestPublishDropsSlowClient(t *testing.T) {
	server := NewServer(&fakeCommander{})
	slow := &client{send: make(chan []byte, 1)}
	fast := &client{send: make(chan []byte, 4)}
	server.register(slow)
	server.register(fast)

	finished := make(chan struct{})
	go func() {
		// Nobody drains slow client: second frame must not block the caller
		for seq := uint64(1); seq <= 2; seq++ {
			if err := server.Publish(context.Background(), report.Frame{Sequence: seq}); err != nil {
				t.Errorf("Publish failed: %v", err)
			}
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on slow client")
	}

	if server.Clients() != 1 {
		t.Errorf("Slow client should be dropped, got %d clients", server.Clients())
	}
	if len(fast.send) != 2 {
		t.Errorf("Fast client should have 2 queued frames, got %d", len(fast.send))
	}
	// Send queue of dropped client is closed after the buffered frame
	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Error("Send queue of dropped client should be closed")
	}
	// Unregistering dropped client again is no-op
	server.unregister(slow)
}
