// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/eclipse-cdt/cdt-sub128/pkg/resiliency"
)

func (s *Session) readerLoop() {
	defer s.wg.Done()
	defer func() {
		if panicErr := resiliency.MakePanicError(recover(), s.log); panicErr != nil {
			s.recordLoopError(fmt.Errorf("output reader: %w", panicErr))
			s.onInboundClosed()
		}
	}()

	var chunk []string
	for {
		line, readErr := s.transport.ReadLine()
		if readErr != nil {
			// The final "^exit" may not be followed by a prompt.
			if len(chunk) > 0 {
				s.processChunk(chunk)
			}

			switch {
			case errors.Is(readErr, io.EOF):
				s.log.V(1).Info("Debugger output ended")
			case s.ctx.Err() != nil:
				s.log.V(1).Info("Debugger output reader stopped")
			default:
				s.onTransportFailure(fmt.Errorf("%w: %w", ErrTransportFailed, readErr))
			}

			s.onInboundClosed()
			return
		}

		s.log.V(1).Info("MI <", "line", line)

		if isPrompt(line) {
			s.processChunk(chunk)
			chunk = chunk[:0]
			continue
		}
		chunk = append(chunk, line)
	}
}

func (s *Session) processChunk(lines []string) {
	out, parseErr := Parse(strings.Join(lines, "\n"))
	if parseErr != nil {
		s.log.Info("Ignoring malformed debugger output", "error", parseErr.Error())
	}

	var events []Event
	if out.Result != nil {
		events = append(events, s.processResult(out)...)
	}
	events = append(events, s.processOOB(out.OOB)...)

	if out.Result != nil {
		// Stream context only covers output produced since the last answered command.
		s.recentStreams.Clear()
	}

	s.dispatcher.dispatch(events)
}

func (s *Session) processResult(out Output) []Event {
	rr := out.Result

	switch rr.Class {
	case ResultRunning:
		s.setState(SessionRunning)
		s.inferior.setState(InferiorRunning)
	case ResultExit:
		s.setState(SessionStopped)
	case ResultConnected:
		s.inferior.connected.Store(true)
	}

	var events []Event

	var cmd *Command
	if rr.Token != NoToken {
		cmd = s.table.Take(rr.Token)
	}
	if cmd == nil {
		s.log.V(1).Info("Result record does not match any outstanding command", "token", rr.Token, "class", rr.Class)
	} else {
		if rr.Class == ResultError && cmd.Classification().Category == CLIStepping {
			// A rejected stepping command leaves the inferior stopped.
			s.inferior.resumeRejected()
		}
		cmd.complete(out, nil)
		events = append(events, s.resultEffects(cmd, rr)...)
	}

	// CLI commands that block until the inferior stops report the stop reason inline.
	if reason := rr.String("reason"); reason != "" {
		events = append(events, s.stopEvents(reason, nil, rr)...)
	}

	return events
}

// resultEffects synthesizes events for state changes implied by a successfully answered command.
func (s *Session) resultEffects(cmd *Command, rr *ResultRecord) []Event {
	if rr.Class == ResultError {
		return nil
	}

	if rr.Class == ResultRunning {
		if rt, isExec := execRunningType(cmd.Operation()); isExec {
			return []Event{{Kind: EventRunning, Token: rr.Token, RunningType: rt, Result: rr}}
		}
		return nil
	}

	class := cmd.Classification()
	switch class.Category {
	case CLIBreakpointSet, CLIWatchpointSet, CLIBreakpointMutate, CLIBreakpointDelete:
		return []Event{{
			Kind:             EventBreakpointChanged,
			Token:            rr.Token,
			BreakpointAction: cliBreakpointActions[class.Category],
			Command:          cmd.Operation(),
			Result:           rr,
		}}
	case CLISignalMapping:
		return []Event{{Kind: EventSignalChanged, Token: rr.Token, Command: cmd.Operation(), Result: rr}}
	case CLIDetach:
		s.inferior.markDisconnected()
		return []Event{{Kind: EventDetached, Token: rr.Token, Command: cmd.Operation(), Result: rr}}
	default:
		return nil
	}
}

func (s *Session) processOOB(records []OOBRecord) []Event {
	var events []Event
	for _, r := range records {
		switch rec := r.(type) {
		case *StreamRecord:
			s.recentStreams.Push(rec)
			s.forwardStream(rec)
		case *AsyncRecord:
			events = append(events, s.processAsync(rec)...)
		}
	}
	return events
}

func (s *Session) processAsync(rec *AsyncRecord) []Event {
	switch rec.Kind {
	case ExecAsync:
		switch rec.Class {
		case "running":
			s.setState(SessionRunning)
			s.inferior.setState(InferiorRunning)
		case "stopped":
			reason := rec.String("reason")
			if reason == "" {
				s.inferior.noteStop(effectSuspend)
				return nil
			}
			return s.stopEvents(reason, rec, nil)
		}

	case NotifyAsync:
		if action, isBreakpoint := breakpointNotifications[rec.Class]; isBreakpoint {
			return []Event{{Kind: EventBreakpointChanged, Token: rec.Token, BreakpointAction: action, Async: rec}}
		}
		if rec.Class == "thread-group-started" && s.inferior.PID() <= 0 {
			if pid, err := strconv.Atoi(rec.String("pid")); err == nil {
				s.inferior.SetPID(pid)
			}
		}
	}
	return nil
}

// stopEvents applies the state change for a stop reason and returns the corresponding event, if any.
// A stop caused by a signal only marks the session stopped; the inferior state is left alone.
func (s *Session) stopEvents(reason string, async *AsyncRecord, result *ResultRecord) []Event {
	kind, effect, known := stopEvent(reason)

	switch effect {
	case effectSuspend:
		s.inferior.noteStop(effectSuspend)
	case effectSessionStopped:
		s.setState(SessionStopped)
		s.inferior.noteStop(effectNone)
	case effectTerminate:
		s.setState(SessionStopped)
		s.inferior.noteStop(effectTerminate)
	}

	if !known {
		s.log.V(1).Info("Unknown stop reason", "reason", reason)
		return nil
	}

	e := Event{Kind: kind, Reason: reason, Async: async, Result: result, Context: s.recentStreams.Values()}
	if async != nil {
		e.Token = async.Token
	} else if result != nil {
		e.Token = result.Token
	}
	return []Event{e}
}

func (s *Session) forwardStream(rec *StreamRecord) {
	var sink io.Writer
	switch rec.Kind {
	case ConsoleStream:
		sink = s.console
		if s.gdbVersion.Load() == nil && strings.HasPrefix(rec.Content, gdbBannerPrefix) {
			if v, err := ParseGDBVersion(rec.Content); err == nil {
				s.gdbVersion.Store(v)
			}
		}
	case TargetStream:
		sink = s.target
	case LogStream:
		sink = s.logSink
	default:
		return
	}

	if _, err := io.WriteString(sink, rec.Content); err != nil {
		s.log.V(1).Info("Could not forward debugger stream output", "stream", rec.Kind.String(), "error", err.Error())
	}
}

// onInboundClosed runs on the reader goroutine when the debugger output ends.
func (s *Session) onInboundClosed() {
	s.setState(SessionStopped)
	s.inferior.setState(InferiorTerminated)
	if s.failurePolicy == FailOutstanding && !s.closing.Load() {
		s.stopWithError(fmt.Errorf("%w: debugger output ended", ErrTransportFailed))
	}
	close(s.inboundDone)
}
