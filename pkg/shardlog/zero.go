package shardlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var Zero = NewZeroLogger("", "info", false)

var logFile *os.File

// NewZeroLogger creates a zerolog logger writing to filepath, or to stdout
// when filepath is empty. With pretty set the output is a human readable
// console format, otherwise one JSON object per line.
func NewZeroLogger(filepath string, level string, pretty bool) *zerolog.Logger {
	_, w, err := newWriter(filepath)
	if err != nil {
		w = os.Stdout
	}
	var out io.Writer = w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(out).With().Timestamp().Logger().Level(parseLevel(level))

	return &logger
}

// ReloadLogger reopens the log destination, closing the previous file if any.
func ReloadLogger(filepath string, level string, pretty bool) error {
	f, w, err := newWriter(filepath)
	if err != nil {
		return err
	}
	var out io.Writer = w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(out).With().Timestamp().Logger().Level(parseLevel(level))

	old := logFile
	Zero = &logger
	logFile = f
	if old != nil {
		return old.Close()
	}
	return nil
}

func UpdateZeroLogLevel(logLevel string) error {
	level := parseLevel(logLevel)
	zeroLogger := Zero.With().Logger().Level(level)
	Zero = &zeroLogger
	return nil
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warning", "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
