// Package retry runs fallible operations a bounded number of times.
package retry

import (
	"context"
	"fmt"
	"log/slog"
)

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Operation string
	Tries     int
	Last      error
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%s: gave up after %d tries", e.Operation, e.Tries)
	}
	return fmt.Sprintf("%s: gave up after %d tries: %v", e.Operation, e.Tries, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

type options struct {
	logger    *slog.Logger
	operation string
	terminal  func(error) bool
}

// Option configures Do.
type Option func(*options)

// WithLogger sets the logger attempts are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOperation names the operation in log entries and errors.
func WithOperation(name string) Option {
	return func(o *options) {
		o.operation = name
	}
}

// WithTerminal sets the classifier for errors that must not be retried.
func WithTerminal(fn func(error) bool) Option {
	return func(o *options) {
		o.terminal = fn
	}
}

// Do calls op up to tries times, one attempt after another with no delay.
// It returns nil on the first success, the error itself when the terminal
// classifier matches, and an *ExhaustedError once all tries are used.
func Do(ctx context.Context, tries int, op func(ctx context.Context) error, opts ...Option) error {
	o := options{
		logger:    slog.Default(),
		operation: "operation",
		terminal:  func(error) bool { return false },
	}
	for _, opt := range opts {
		opt(&o)
	}

	var last error
	for attempt := 1; attempt <= tries; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if o.terminal(err) {
			return err
		}

		o.logger.Error("attempt failed, retrying",
			"operation", o.operation,
			"attempt", attempt,
			"tries", tries,
			"error", err,
		)
		last = err
	}

	exhausted := &ExhaustedError{Operation: o.operation, Tries: tries, Last: last}
	o.logger.Error("giving up", "operation", o.operation, "tries", tries)
	return exhausted
}
