package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/LdDl/refdist-go/capture"
	"github.com/LdDl/refdist-go/config"
	"github.com/LdDl/refdist-go/control"
	"github.com/LdDl/refdist-go/internal/log"
	"github.com/LdDl/refdist-go/overlay"
	"github.com/LdDl/refdist-go/pipeline"
	"github.com/LdDl/refdist-go/refdist"
	"github.com/LdDl/refdist-go/report"
	"github.com/LdDl/refdist-go/vision"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

func main() {
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal(log.Fields{"error": err}, "Can't load configuration")
	}
	logger := log.NewLogger(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Stopped with error")
	}
	logger.Info("Bye")
}

func run(cfg config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	detector := cfg.Detector()
	state := refdist.NewTrackingState(cfg.MatchRadius, refdist.WithLogger(logger))
	engine := pipeline.NewEngine(
		detector,
		vision.NewCalibrator(cfg.CalibratorConfig()),
		state,
		pipeline.WithEngineLogger(logger),
	)

	source, err := capture.Open(cfg.Source)
	if err != nil {
		return err
	}
	defer source.Close()
	width, height := source.Size()
	logger.WithFields(logrus.Fields{"source": source.Name(), "width": width, "height": height}).Info("Frame source opened")

	sinks, closers, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	if cfg.HTTPAddr != "" {
		server := control.NewServer(engine, control.WithLogger(logger))
		sinks = append(sinks, server)
		go func() {
			if err := server.Listen(cfg.HTTPAddr); err != nil {
				logger.WithError(err).Error("Control server stopped")
			}
		}()
		defer server.Shutdown()
	}
	publisher := report.Multi(sinks)

	var window *gocv.Window
	if cfg.ShowWindow {
		window = gocv.NewWindow(cfg.WindowName)
		defer window.Close()
	}
	renderer := overlay.NewRenderer(detector.Table())

	frame := gocv.NewMat()
	defer frame.Close()

	logger.Info("Press 'c' to calibrate | 'r' to reset | 'q' to quit")
	for {
		select {
		case <-ctx.Done():
			logger.Info("Interrupted")
			return nil
		case <-engine.Done():
			return nil
		default:
		}

		if ok := source.Read(&frame); !ok {
			logger.Info("Frame source exhausted")
			return nil
		}
		if frame.Empty() {
			continue
		}

		snapshot := engine.Process(frame)
		if err := publisher.Publish(ctx, snapshot); err != nil {
			logger.WithError(err).Warn("Can't publish frame report")
		}

		if window == nil {
			continue
		}
		display := frame.Clone()
		renderer.Draw(&display, state)
		window.IMShow(display)
		display.Close()

		if cmd, ok := pipeline.CommandFromKey(window.WaitKey(1)); ok {
			// Calibration must see the clean frame, not the rendered one
			engine.Execute(cmd, frame)
		}
	}
}

func buildSinks(ctx context.Context, cfg config.Config, logger *logrus.Logger) (report.Multi, []io.Closer, error) {
	var sinks report.Multi
	var closers []io.Closer

	switch cfg.ReportJSON {
	case "":
	case "-":
		sinks = append(sinks, report.NewJSONLines(os.Stdout))
	default:
		file, err := os.Create(cfg.ReportJSON)
		if err != nil {
			return nil, closers, errors.Wrap(err, "can't create JSON report file")
		}
		closers = append(closers, file)
		sinks = append(sinks, report.NewJSONLines(file))
	}

	if cfg.ReportCSV != "" {
		file, err := os.Create(cfg.ReportCSV)
		if err != nil {
			return nil, closers, errors.Wrap(err, "can't create CSV report file")
		}
		closers = append(closers, file)
		sinks = append(sinks, report.NewCSV(file))
	}

	if cfg.RedisAddr != "" {
		client, err := report.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, client)
		sinks = append(sinks, report.NewRedis(client, cfg.RedisChannel, cfg.RedisTTL))
		logger.WithField("channel", cfg.RedisChannel).Info("Publishing frame reports to Redis")
	}
	return sinks, closers, nil
}
