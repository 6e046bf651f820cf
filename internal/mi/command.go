// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Command is a request sent to the debugger.
// Its token is assigned by the session writer when the command is transmitted,
// and its result is set at most once: by the reader when the matching result record arrives,
// or by the session when the command cannot complete.
type Command struct {
	operation string
	raw       bool
	cli       CLIClass

	// id identifies the command while it waits in the queue; unlike the token it is assigned on Push().
	id    atomic.Uint64
	token atomic.Int64

	completed  atomic.Bool
	done       chan struct{}
	output     Output
	err        error
	resultOnce *sync.Once
}

// NewCommand creates a command from an MI operation (e.g. "-break-insert") or a CLI command (e.g. "next").
// Arguments that contain whitespace or quotes are quoted as MI c-strings.
func NewCommand(operation string, args ...string) *Command {
	op := operation
	if len(args) > 0 {
		quoted := make([]string, 0, len(args)+1)
		quoted = append(quoted, operation)
		for _, a := range args {
			quoted = append(quoted, quoteArg(a))
		}
		op = strings.Join(quoted, " ")
	}

	return &Command{
		operation:  op,
		cli:        ClassifyCLI(op),
		done:       make(chan struct{}),
		resultOnce: &sync.Once{},
	}
}

// NewConsoleCommand wraps a CLI command with -interpreter-exec so that its output
// arrives as console stream records followed by an MI result record.
func NewConsoleCommand(cliCommand string) *Command {
	return NewCommand("-interpreter-exec", "console", cliCommand)
}

// NewRawCommand creates a command that is written verbatim, without a token.
// Raw commands never receive a result; the command completes as soon as it has been written.
func NewRawCommand(text string) *Command {
	cmd := NewCommand(text)
	cmd.raw = true
	return cmd
}

func (c *Command) Operation() string {
	return c.operation
}

// Token returns the token assigned at transmission, or NoToken if the command has not been sent.
func (c *Command) Token() Token {
	return Token(c.token.Load())
}

func (c *Command) IsRaw() bool {
	return c.raw
}

// Classification returns how the command affects debugger state when issued as CLI text.
func (c *Command) Classification() CLIClass {
	return c.cli
}

// Done returns a channel that is closed once the command has completed.
func (c *Command) Done() <-chan struct{} {
	return c.done
}

// Result returns the correlated output. The boolean is false if the command has not completed,
// or if it completed without a result record (e.g. because the session closed).
func (c *Command) Result() (Output, bool) {
	if !c.completed.Load() {
		return Output{}, false
	}
	<-c.done
	return c.output, c.err == nil && c.output.Result != nil
}

// Err returns the reason the command completed without a result, if any.
func (c *Command) Err() error {
	if !c.completed.Load() {
		return nil
	}
	<-c.done
	return c.err
}

// wireText is the line written to the debugger, including the trailing newline.
func (c *Command) wireText() string {
	if c.raw {
		return c.operation + "\n"
	}
	return c.Token().String() + c.operation + "\n"
}

// complete sets the result exactly once and wakes up the waiter.
// Returns false if the command was already complete.
func (c *Command) complete(out Output, err error) bool {
	first := false
	c.resultOnce.Do(func() {
		first = true
		c.output = out
		c.err = err
		c.completed.Store(true)
		close(c.done)
	})
	return first
}

func quoteArg(a string) string {
	if a != "" && !strings.ContainsAny(a, " \t\n\"\\'") {
		return a
	}
	var sb strings.Builder
	writeCString(&sb, a)
	return sb.String()
}
