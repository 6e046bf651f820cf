// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"context"
	"errors"
)

type OutcomeKind int

const (
	// OutcomeOK means the command was correlated with a result record.
	// The result may still be an MI error; see Outcome.Err().
	OutcomeOK OutcomeKind = iota

	// OutcomeTimeout means no result record arrived before the deadline.
	OutcomeTimeout

	// OutcomeTransportError means the command could not be sent or the session stopped before it was answered.
	OutcomeTransportError

	// OutcomeCanceled means the caller's context ended, or the command was retracted, before a result arrived.
	OutcomeCanceled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeTransportError:
		return "transport-error"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Outcome is the result of posting a command.
type Outcome struct {
	Kind OutcomeKind

	// Output is set only when Kind is OutcomeOK.
	Output Output

	// Token is the token the command was sent with, or NoToken if it was never sent.
	Token Token

	operation string
	err       error
}

func (o Outcome) OK() bool {
	return o.Kind == OutcomeOK
}

// IsErrorResult returns true if the command was answered with an MI error (^error).
func (o Outcome) IsErrorResult() bool {
	return o.Kind == OutcomeOK && o.Output.IsError()
}

// Err returns nil for a successful result. An MI error result is reported as *CommandError;
// other outcomes carry ErrCommandTimeout, a transport error or a context error.
func (o Outcome) Err() error {
	if o.Kind != OutcomeOK {
		return o.err
	}
	if o.Output.IsError() {
		return newCommandError(o.operation, o.Output.Result)
	}
	return nil
}

func outcomeOf(cmd *Command) Outcome {
	o := Outcome{Token: cmd.Token(), operation: cmd.Operation()}

	if err := cmd.Err(); err != nil {
		o.err = err
		switch {
		case errors.Is(err, ErrCommandTimeout):
			o.Kind = OutcomeTimeout
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			o.Kind = OutcomeCanceled
		default:
			o.Kind = OutcomeTransportError
		}
		return o
	}

	o.Kind = OutcomeOK
	o.Output, _ = cmd.Result()
	return o
}

func failedOutcome(cmd *Command, kind OutcomeKind, err error) Outcome {
	return Outcome{Kind: kind, Token: cmd.Token(), operation: cmd.Operation(), err: err}
}
