// Package errs holds the error taxonomy shared by the bot orchestrator,
// the live session bus and the stream ingest client.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrConfiguration = errors.New("not configured")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timed out")
)

func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func Configuration(msg string) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, msg)
}

func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q %w", kind, id, ErrNotFound)
}

func Timeout(op string) error {
	return fmt.Errorf("%s %w", op, ErrTimeout)
}

// LaunchError reports a worker process that failed to start. Output holds
// whatever diagnostic text the launcher captured.
type LaunchError struct {
	Output string
	Err    error
}

func (e *LaunchError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("worker launch failed: %v", e.Err)
	}
	return fmt.Sprintf("worker launch failed: %v: %s", e.Err, e.Output)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// StreamError reports a connect or read failure on a stream connection.
type StreamError struct {
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }
