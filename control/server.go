// Package control exposes the command surface and a live report stream over HTTP.
package control

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/LdDl/refdist-go/pipeline"
	"github.com/LdDl/refdist-go/report"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultCommandTimeout = 5 * time.Second
)

// Commander accepts commands and serves the latest frame report
type Commander interface {
	Submit(cmd pipeline.Command) <-chan pipeline.CommandResult
	Snapshot() report.Frame
}

// CommandResponse is the body of command endpoints
type CommandResponse struct {
	Command             string  `json:"command"`
	OK                  bool    `json:"ok"`
	Queued              bool    `json:"queued,omitempty"`
	Error               string  `json:"error,omitempty"`
	Calibrated          bool    `json:"calibrated"`
	PixelsPerCentimeter float64 `json:"pixels_per_cm,omitempty"`
}

// Server serves REST commands and pushes frame reports to WebSocket clients.
// It implements report.Sink
type Server struct {
	app       *fiber.App
	commander Commander
	logger    logrus.FieldLogger
	timeout   time.Duration

	clientsMu sync.Mutex
	clients   map[*client]struct{}
}

// Option customizes Server
type Option func(*Server)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCommandTimeout limits how long a request waits for the command to be executed by the processing loop
func WithCommandTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewServer creates server and registers routes
func NewServer(commander Commander, options ...Option) *Server {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Server{
		commander: commander,
		logger:    discard,
		timeout:   defaultCommandTimeout,
		clients:   make(map[*client]struct{}),
	}
	for _, option := range options {
		option(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "refdist",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Post("/:command", s.handleCommand)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/reports", websocket.New(s.handleReportsWS))

	s.app = app
	return s
}

// App returns underlying fiber application
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP on addr
func (s *Server) Listen(addr string) error {
	s.logger.WithField("addr", addr).Info("Control server started")
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.commander.Snapshot())
}

func (s *Server) handleCommand(c *fiber.Ctx) error {
	cmd, ok := pipeline.ParseCommand(c.Params("command"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown command")
	}
	reply := s.commander.Submit(cmd)
	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()

	select {
	case result := <-reply:
		resp := CommandResponse{
			Command:             cmd.String(),
			OK:                  result.Err == nil,
			Calibrated:          result.Scale.Calibrated,
			PixelsPerCentimeter: result.Scale.PixelsPerCentimeter,
		}
		status := fiber.StatusOK
		if result.Err != nil {
			resp.Error = result.Err.Error()
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(resp)
	case <-ctx.Done():
		// Command stays queued, processing loop will run it on the next frame
		return c.Status(fiber.StatusAccepted).JSON(CommandResponse{
			Command: cmd.String(),
			Queued:  true,
		})
	}
}

func (s *Server) handleReportsWS(conn *websocket.Conn) {
	cl := newClient(conn)
	payload, err := json.Marshal(s.commander.Snapshot())
	if err == nil {
		cl.send <- payload
	}
	s.register(cl)

	done := make(chan struct{})
	go func() {
		cl.writePump()
		close(done)
	}()
	cl.readPump()

	s.unregister(cl)
	// Connection is released by fiber once handler returns
	<-done
}

func (s *Server) register(cl *client) {
	s.clientsMu.Lock()
	s.clients[cl] = struct{}{}
	count := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.WithField("clients", count).Debug("WebSocket client connected")
}

func (s *Server) unregister(cl *client) {
	s.clientsMu.Lock()
	if _, ok := s.clients[cl]; ok {
		delete(s.clients, cl)
		close(cl.send)
	}
	s.clientsMu.Unlock()
}

// Publish queues frame report for every connected WebSocket client. It never blocks on the network:
// clients whose queue is full are dropped
func (s *Server) Publish(_ context.Context, frame report.Frame) error {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if len(s.clients) == 0 {
		return nil
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return errors.Wrap(err, "can't encode frame report")
	}
	for cl := range s.clients {
		select {
		case cl.send <- payload:
		default:
			delete(s.clients, cl)
			close(cl.send)
			s.logger.Warn("Dropped slow WebSocket client")
		}
	}
	return nil
}

// Clients returns number of connected WebSocket clients
func (s *Server) Clients() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}
