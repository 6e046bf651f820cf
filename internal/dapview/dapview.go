// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package dapview renders debugger session events as Debug Adapter Protocol messages.
package dapview

import (
	"io"
	"strconv"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"

	"github.com/eclipse-cdt/cdt-sub128/internal/mi"
)

// Render converts a session event into the DAP events a client would expect to see.
// Events that have no DAP counterpart render as nil.
func Render(e mi.Event) []dap.Message {
	switch e.Kind {
	case mi.EventBreakpointHit:
		return []dap.Message{newStoppedEvent(e, "breakpoint")}
	case mi.EventWatchpointTrigger:
		return []dap.Message{newStoppedEvent(e, "data breakpoint")}
	case mi.EventStepEnd, mi.EventLocationReached, mi.EventFunctionFinished:
		return []dap.Message{newStoppedEvent(e, "step")}
	case mi.EventSignal:
		if e.SignalName() == "SIGINT" {
			return []dap.Message{newStoppedEvent(e, "pause")}
		}
		stopped := newStoppedEvent(e, "exception")
		stopped.Body.Description = e.SignalName()
		stopped.Body.Text = e.FieldString("signal-meaning")
		return []dap.Message{stopped}

	case mi.EventExit:
		code, _ := e.ExitCode()
		return []dap.Message{
			&dap.ExitedEvent{
				Event: newEvent("exited"),
				Body:  dap.ExitedEventBody{ExitCode: code},
			},
			&dap.TerminatedEvent{Event: newEvent("terminated")},
		}

	case mi.EventRunning:
		threadID, allThreads := threadOf(e)
		return []dap.Message{
			&dap.ContinuedEvent{
				Event: newEvent("continued"),
				Body: dap.ContinuedEventBody{
					ThreadId:            threadID,
					AllThreadsContinued: allThreads,
				},
			},
		}

	case mi.EventDetached:
		return []dap.Message{&dap.TerminatedEvent{Event: newEvent("terminated")}}

	case mi.EventBreakpointChanged:
		if bp := newBreakpointEvent(e); bp != nil {
			return []dap.Message{bp}
		}
		return nil

	default:
		return nil
	}
}

func newEvent(name string) dap.Event {
	return dap.Event{
		ProtocolMessage: dap.ProtocolMessage{
			Type: "event",
		},
		Event: name,
	}
}

func newStoppedEvent(e mi.Event, reason string) *dap.StoppedEvent {
	threadID, allThreads := threadOf(e)
	if stopped, ok := e.Field("stopped-threads").(mi.Const); ok && stopped == "all" {
		allThreads = true
	}
	return &dap.StoppedEvent{
		Event: newEvent("stopped"),
		Body: dap.StoppedEventBody{
			Reason:            reason,
			ThreadId:          threadID,
			AllThreadsStopped: allThreads,
		},
	}
}

// threadOf returns the numeric thread of the event; "all" (or a missing thread) means every thread.
func threadOf(e mi.Event) (int, bool) {
	threadID, err := strconv.Atoi(e.ThreadID())
	if err != nil {
		return 0, true
	}
	return threadID, false
}

func newBreakpointEvent(e mi.Event) *dap.BreakpointEvent {
	var reason string
	switch e.BreakpointAction {
	case mi.BreakpointCreated, mi.BreakpointWatchpointCreated:
		reason = "new"
	case mi.BreakpointModified:
		reason = "changed"
	case mi.BreakpointDeleted:
		reason = "removed"
	default:
		return nil
	}

	bp := dap.Breakpoint{Verified: reason != "removed"}
	if bkpt, ok := e.Field("bkpt").(mi.Tuple); ok {
		bp.Id, _ = strconv.Atoi(bkpt.String("number"))
		bp.Line, _ = strconv.Atoi(bkpt.String("line"))
		if file := bkpt.String("fullname"); file != "" {
			bp.Source = &dap.Source{Path: file, Name: bkpt.String("file")}
		}
		if bkpt.String("pending") != "" {
			bp.Verified = false
		}
	} else if id, err := strconv.Atoi(e.FieldString("id")); err == nil {
		bp.Id = id
	}

	return &dap.BreakpointEvent{
		Event: newEvent("breakpoint"),
		Body: dap.BreakpointEventBody{
			Reason:     reason,
			Breakpoint: bp,
		},
	}
}

// Emitter writes DAP messages to a stream, assigning sequence numbers.
// It is safe for concurrent use.
type Emitter struct {
	w   io.Writer
	log logr.Logger

	mu  sync.Mutex
	seq int
}

func NewEmitter(w io.Writer, log logr.Logger) *Emitter {
	return &Emitter{w: w, log: log}
}

// Emit writes the messages in order. Event sequence numbers are assigned here.
func (em *Emitter) Emit(msgs ...dap.Message) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	for _, msg := range msgs {
		em.seq++
		setSeq(msg, em.seq)
		if err := dap.WriteProtocolMessage(em.w, msg); err != nil {
			return err
		}
	}
	return nil
}

// OnEvent renders the event and writes the result, making the Emitter a session listener.
func (em *Emitter) OnEvent(e mi.Event) {
	msgs := Render(e)
	if len(msgs) == 0 {
		return
	}
	if err := em.Emit(msgs...); err != nil {
		em.log.Error(err, "Could not write DAP event", "kind", string(e.Kind))
	}
}

// Output returns a writer that turns everything written to it into output events of the given category
// ("console", "stdout" or "stderr").
func (em *Emitter) Output(category string) io.Writer {
	return &outputWriter{em: em, category: category}
}

var _ mi.Listener = (*Emitter)(nil)

type outputWriter struct {
	em       *Emitter
	category string
}

func (ow *outputWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	err := ow.em.Emit(&dap.OutputEvent{
		Event: newEvent("output"),
		Body: dap.OutputEventBody{
			Category: ow.category,
			Output:   string(p),
		},
	})
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func setSeq(msg dap.Message, seq int) {
	switch m := msg.(type) {
	case *dap.StoppedEvent:
		m.Seq = seq
	case *dap.ContinuedEvent:
		m.Seq = seq
	case *dap.ExitedEvent:
		m.Seq = seq
	case *dap.TerminatedEvent:
		m.Seq = seq
	case *dap.BreakpointEvent:
		m.Seq = seq
	case *dap.OutputEvent:
		m.Seq = seq
	}
}
