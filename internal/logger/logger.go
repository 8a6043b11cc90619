package logger

import (
	"io"
	"os"
	"time"

	"github.com/evyataryagoni/ipgeocode/internal/models"
	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger for application-wide logging
// It also implements the narrow logging interfaces the core packages accept
// (geo.Logger, service.Logger), so the process owns one logger and injects it
type Logger struct {
	*zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // Enable pretty console output
	OutputFile string // Optional file output path
}

// New creates a new logger with the given configuration
func New(cfg Config) *Logger {
	// Parse log level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	// Configure output
	var output io.Writer = os.Stdout

	// Pretty console output (for development)
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	// File output (optional)
	if cfg.OutputFile != "" {
		file, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			// Write to both stdout and file
			output = io.MultiWriter(output, file)
		}
	}

	return NewWithWriter(output, level)
}

// NewWithWriter creates a logger writing JSON lines to w
// Useful in tests to capture output
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	logger := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: &logger}
}

// NewDefault creates a logger with default settings
func NewDefault() *Logger {
	return New(Config{
		Level:  "info",
		Pretty: true,
	})
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	logger := zerolog.Nop()
	return &Logger{Logger: &logger}
}

// WithComponent returns a logger with a component field
func (l *Logger) WithComponent(component string) *Logger {
	newLogger := l.With().Str("component", component).Logger()
	return &Logger{Logger: &newLogger}
}

// WithRequestID returns a logger with a request ID field
func (l *Logger) WithRequestID(requestID string) *Logger {
	newLogger := l.With().Str("request_id", requestID).Logger()
	return &Logger{Logger: &newLogger}
}

// WithIP returns a logger with an IP address field
func (l *Logger) WithIP(ip string) *Logger {
	newLogger := l.With().Str("ip", ip).Logger()
	return &Logger{Logger: &newLogger}
}

// FetchFailed logs one failed lookup
// A 423 is logged as a bogon address so it stands out from generic HTTP errors
func (l *Logger) FetchFailed(ip string, kind models.FailureKind, status int, err error) {
	event := l.WithIP(ip).Error().
		Str("failure_kind", string(kind))
	if status != 0 {
		event = event.Int("status", status)
	}
	if err != nil {
		event = event.Err(err)
	}

	switch kind {
	case models.RestrictedAddress:
		event.Msg("Bogon IP address")
	case models.HTTPError:
		event.Msg("HTTP error occurred")
	case models.ConnectionFailure:
		event.Msg("Connection error occurred")
	case models.TimeoutFailure:
		event.Msg("Timeout error occurred")
	default:
		event.Msg("Request exception occurred")
	}
}

// WindowPause logs a rate limiter suspension
func (l *Logger) WindowPause(calls int, wait time.Duration) {
	l.Info().
		Int("calls", calls).
		Dur("wait", wait).
		Msg("Rate limit reached, sleeping")
}

// BatchCompleted logs the end of a batch
func (l *Logger) BatchCompleted(rows, failures int, took time.Duration) {
	l.Info().
		Int("rows", rows).
		Int("failures", failures).
		Dur("duration", took).
		Msg("Geocoding completed")
}
