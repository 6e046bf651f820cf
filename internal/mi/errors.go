// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"
)

var (
	// ErrSessionClosed is returned when attempting to use a closed session,
	// and delivered to commands that were outstanding when the session closed.
	ErrSessionClosed = errors.New("session is closed")

	// ErrWriterNotRunning is returned when a command is posted while the writer goroutine is not alive.
	ErrWriterNotRunning = errors.New("command writer is not running")

	// ErrCommandTimeout is returned when no result record arrives for a command within its deadline.
	ErrCommandTimeout = errors.New("command timeout")

	// ErrTransportFailed is returned when reading from or writing to the debugger fails.
	ErrTransportFailed = errors.New("debugger transport failed")

	// ErrNotQueued is returned when retracting a command that is no longer (or never was) queued.
	ErrNotQueued = errors.New("command is not queued")

	// ErrInterruptTimeout is returned when the inferior does not stop after an interrupt.
	ErrInterruptTimeout = errors.New("inferior did not stop after interrupt")

	// ErrTerminated is returned when an operation requires an inferior that has not terminated.
	ErrTerminated = errors.New("inferior has terminated")

	// ErrNoProcess is returned when there is no process to deliver an interrupt to.
	ErrNoProcess = errors.New("no process to interrupt")
)

// IsSessionError returns true if the error means the session can no longer process commands.
func IsSessionError(err error) bool {
	return errors.Is(err, ErrSessionClosed) ||
		errors.Is(err, ErrWriterNotRunning) ||
		errors.Is(err, ErrTransportFailed)
}

// IsTimeoutError returns true if the error is a client-side timeout
// (of a command, or of waiting for the inferior to stop).
func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrCommandTimeout) ||
		errors.Is(err, ErrInterruptTimeout)
}

// IsInferiorError returns true if the error is caused by the state of the inferior process.
func IsInferiorError(err error) bool {
	return errors.Is(err, ErrTerminated) ||
		errors.Is(err, ErrNoProcess)
}

// ParseError describes a line of debugger output that is not valid MI.
type ParseError struct {
	Line    string
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("MI parse error at column %d: %s (line: %q)", e.Column, e.Message, e.Line)
}

// CommandError is an MI error result ("^error") correlated with the command that caused it.
type CommandError struct {
	Operation string
	Token     Token

	// Message is the backend error message taken from the "msg" (or "message") field.
	Message string

	// Code is the optional "code" field, e.g. "undefined-command".
	Code string
}

func (e *CommandError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("command %q failed (%s): %s", e.Operation, e.Code, e.Message)
	}
	return fmt.Sprintf("command %q failed: %s", e.Operation, e.Message)
}

func newCommandError(operation string, rr *ResultRecord) *CommandError {
	msg := rr.String("msg")
	if msg == "" {
		msg = rr.String("message")
	}
	return &CommandError{
		Operation: operation,
		Token:     rr.Token,
		Message:   msg,
		Code:      rr.String("code"),
	}
}

// filterContextError filters out redundant context errors during shutdown.
// If the error is a context.Canceled or context.DeadlineExceeded and the
// context is already done, the error is logged at debug level and nil is returned.
// A debugger process killed because of context cancellation is filtered out as well.
func filterContextError(err error, ctx context.Context, log logr.Logger) error {
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.V(1).Info("Filtering redundant context error", "error", err)
			return nil
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.Contains(exitErr.Error(), "signal: killed") {
			log.V(1).Info("Filtering process killed error on context cancellation", "error", err)
			return nil
		}
	}

	return err
}
