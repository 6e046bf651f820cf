// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"strconv"
)

type EventKind string

const (
	EventBreakpointHit     EventKind = "breakpoint-hit"
	EventWatchpointTrigger EventKind = "watchpoint-trigger"
	EventStepEnd           EventKind = "step-end"
	EventSignal            EventKind = "signal"
	EventLocationReached   EventKind = "location-reached"
	EventFunctionFinished  EventKind = "function-finished"
	EventExit              EventKind = "exit"
	EventRunning           EventKind = "running"
	EventDetached          EventKind = "detached"
	EventBreakpointChanged EventKind = "breakpoint-changed"
	EventSignalChanged     EventKind = "signal-changed"
)

// IsStop returns true for events that report the inferior stopping or exiting.
func (k EventKind) IsStop() bool {
	switch k {
	case EventBreakpointHit, EventWatchpointTrigger, EventStepEnd, EventSignal,
		EventLocationReached, EventFunctionFinished, EventExit:
		return true
	default:
		return false
	}
}

type BreakpointAction string

const (
	BreakpointCreated           BreakpointAction = "created"
	BreakpointWatchpointCreated BreakpointAction = "watchpoint-created"
	BreakpointModified          BreakpointAction = "modified"
	BreakpointDeleted           BreakpointAction = "deleted"
)

// Event is a state change of the debugger or the inferior.
// It carries the record it was synthesized from, so that consumers can render it.
type Event struct {
	Kind EventKind

	// Token of the originating record, or of the command that caused the event.
	Token Token

	// Reason is the MI stop reason, for events synthesized from stop records.
	Reason string

	// RunningType is set for running events.
	RunningType RunningType

	// BreakpointAction is set for breakpoint-changed events.
	BreakpointAction BreakpointAction

	// Command is the CLI text of the command that caused the event, if any.
	Command string

	// Async is the originating async record, if any.
	Async *AsyncRecord

	// Result is the originating result record, if any.
	Result *ResultRecord

	// Context holds the most recent stream records received before a stop,
	// which often explain why the inferior stopped.
	Context []*StreamRecord
}

// Fields returns the results of the originating record.
func (e Event) Fields() []Result {
	switch {
	case e.Async != nil:
		return e.Async.Results
	case e.Result != nil:
		return e.Result.Results
	default:
		return nil
	}
}

func (e Event) Field(name string) Value {
	return findField(e.Fields(), name)
}

func (e Event) FieldString(name string) string {
	return constField(e.Fields(), name)
}

func (e Event) ThreadID() string {
	return e.FieldString("thread-id")
}

func (e Event) SignalName() string {
	return e.FieldString("signal-name")
}

// ExitCode returns the exit code of an exit event. MI reports exit codes in octal.
func (e Event) ExitCode() (int, bool) {
	if e.Kind != EventExit {
		return 0, false
	}
	if e.Reason == "exited-normally" {
		return 0, true
	}
	code, err := strconv.ParseInt(e.FieldString("exit-code"), 8, 32)
	if err != nil {
		return 0, false
	}
	return int(code), true
}

// Text renders the originating record in MI syntax.
func (e Event) Text() string {
	switch {
	case e.Async != nil:
		return e.Async.Text()
	case e.Result != nil:
		return e.Result.Text()
	default:
		return e.Command
	}
}

type stateEffect int

const (
	effectNone stateEffect = iota
	effectSuspend
	// Only the session is marked stopped; the inferior keeps its state.
	effectSessionStopped
	effectTerminate
)

type stopMapping struct {
	kind   EventKind
	effect stateEffect
}

var stopReasons = map[string]stopMapping{
	"breakpoint-hit":            {EventBreakpointHit, effectSuspend},
	"watchpoint-trigger":        {EventWatchpointTrigger, effectSuspend},
	"read-watchpoint-trigger":   {EventWatchpointTrigger, effectSuspend},
	"access-watchpoint-trigger": {EventWatchpointTrigger, effectSuspend},
	"watchpoint-scope":          {EventWatchpointTrigger, effectSuspend},
	"end-stepping-range":        {EventStepEnd, effectSuspend},
	"location-reached":          {EventLocationReached, effectSuspend},
	"function-finished":         {EventFunctionFinished, effectSuspend},
	"signal-received":           {EventSignal, effectSessionStopped},
	"exited":                    {EventExit, effectTerminate},
	"exited-normally":           {EventExit, effectTerminate},
	"exited-signalled":          {EventExit, effectTerminate},
}

// stopEvent maps a stop reason to an event and the state change it implies.
// Unknown reasons yield no event and only suspend the inferior.
func stopEvent(reason string) (EventKind, stateEffect, bool) {
	m, found := stopReasons[reason]
	if !found {
		return "", effectSuspend, false
	}
	return m.kind, m.effect, true
}

var breakpointNotifications = map[string]BreakpointAction{
	"breakpoint-created":  BreakpointCreated,
	"breakpoint-modified": BreakpointModified,
	"breakpoint-deleted":  BreakpointDeleted,
}

// cliBreakpointActions maps CLI categories with breakpoint side effects to the reported action.
var cliBreakpointActions = map[CLICategory]BreakpointAction{
	CLIBreakpointSet:    BreakpointCreated,
	CLIWatchpointSet:    BreakpointWatchpointCreated,
	CLIBreakpointMutate: BreakpointModified,
	CLIBreakpointDelete: BreakpointDeleted,
}
