package telemetry

import (
	"log"
	"time"

	"golang.org/x/time/rate"
)

// Logger exposes the logging capabilities required by server components.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger to the Logger interface.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// StandardLogger exposes the wrapped logger.
func (l *loggerAdapter) StandardLogger() *log.Logger {
	if l == nil {
		return nil
	}
	return l.logger
}

// Throttle returns a Logger that forwards at most one line per interval.
// Lines in between are discarded.
func Throttle(next Logger, interval time.Duration) Logger {
	if next == nil {
		return LoggerFunc(nil)
	}
	return &throttled{next: next, gate: &rate.Sometimes{Interval: interval}}
}

type throttled struct {
	next Logger
	gate *rate.Sometimes
}

func (t *throttled) Printf(format string, args ...any) {
	t.gate.Do(func() {
		t.next.Printf(format, args...)
	})
}
