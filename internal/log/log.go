// Package log configures structured logging for refdist.
package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

type Fields = logrus.Fields

// Options tune the global logger
type Options struct {
	Level string // trace, debug, info, warn, error
	File  string // Rotated log file, empty disables file output
}

// NewLogger initializes the global logger once and returns it
func NewLogger(opts Options) *logrus.Logger {
	once.Do(func() {
		logger = build(opts, os.Stderr)
	})
	return logger
}

// L returns the global logger, initializing it with defaults when needed
func L() *logrus.Logger {
	return NewLogger(Options{Level: "info"})
}

func build(opts Options, stderr io.Writer) *logrus.Logger {
	l := logrus.New()
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	l.SetFormatter(&formatter.Formatter{
		NoColors:        false,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
		},
	})

	writers := []io.Writer{stderr}
	if opts.File != "" && os.Getenv("APP_ENV") != "test" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	l.SetOutput(io.MultiWriter(writers...))
	l.SetReportCaller(true)
	return l
}

// Fatal logs with the global logger and exits. Used before the configured logger exists
func Fatal(fields Fields, msg string) {
	L().WithFields(fields).Fatal(msg)
}
