// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davidwartell/go-onecontext/onecontext"

	"github.com/eclipse-cdt/cdt-sub128/pkg/process"
)

type InferiorState int32

const (
	InferiorSuspended InferiorState = iota
	InferiorRunning
	InferiorTerminated
)

func (s InferiorState) String() string {
	switch s {
	case InferiorSuspended:
		return "suspended"
	case InferiorRunning:
		return "running"
	case InferiorTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Topology describes how the debugger is connected to the inferior.
type Topology struct {
	// Attached is true if the debugger attached to an existing process instead of spawning it.
	Attached bool

	// Remote is true if the inferior runs under a remote stub (gdbserver).
	Remote bool
}

// Some debuggers do not forward interrupts to processes they attached to,
// so a local attached inferior is signalled directly.
func (t Topology) signalsInferiorDirectly() bool {
	return t.Attached && !t.Remote
}

// Signaler delivers an interrupt to a process.
type Signaler interface {
	Interrupt(pid int) error
}

type SignalerFunc func(pid int) error

func (f SignalerFunc) Interrupt(pid int) error {
	return f(pid)
}

// OSSignaler interrupts processes with SIGINT (CTRL_BREAK on Windows).
type OSSignaler struct{}

func (OSSignaler) Interrupt(pid int) error {
	return process.Interrupt(pid)
}

// Inferior tracks the state of the debugged process.
// The state toggles between suspended and running until the inferior terminates; terminated is final.
type Inferior struct {
	session  *Session
	topology Topology

	pid          atomic.Int64
	connected    atomic.Bool
	disconnected atomic.Bool

	lock  *sync.Mutex
	state InferiorState
	// stops counts stop records, including those that do not change the state.
	stops uint64
	// changed is closed (and replaced) on every state change or stop.
	changed chan struct{}
}

func newInferior(s *Session, topology Topology, pid int) *Inferior {
	inf := &Inferior{
		session:  s,
		topology: topology,
		lock:     &sync.Mutex{},
		state:    InferiorSuspended,
		changed:  make(chan struct{}),
	}
	inf.pid.Store(int64(pid))
	return inf
}

func (inf *Inferior) State() InferiorState {
	inf.lock.Lock()
	defer inf.lock.Unlock()
	return inf.state
}

func (inf *Inferior) IsSuspended() bool {
	return inf.State() == InferiorSuspended
}

func (inf *Inferior) IsRunning() bool {
	return inf.State() == InferiorRunning
}

func (inf *Inferior) IsTerminated() bool {
	return inf.State() == InferiorTerminated
}

// IsConnected returns true once a remote target has been selected.
func (inf *Inferior) IsConnected() bool {
	return inf.connected.Load()
}

// IsDisconnected returns true if the debugger detached from the inferior.
func (inf *Inferior) IsDisconnected() bool {
	return inf.disconnected.Load()
}

// PID returns the process ID of the inferior, or 0 if it is not known.
func (inf *Inferior) PID() int {
	return int(inf.pid.Load())
}

// SetPID records the process ID of the inferior, for callers that learn it out of band.
func (inf *Inferior) SetPID(pid int) {
	inf.pid.Store(int64(pid))
}

func (inf *Inferior) Topology() Topology {
	return inf.topology
}

// Interrupt asks the debugger to stop the running inferior and waits,
// at most for the session command timeout, until the inferior is no longer running.
// A local attached inferior is signalled directly; in every other topology the debugger process is signalled
// and forwards the interrupt.
// Returns nil right away if the inferior is not running.
func (inf *Inferior) Interrupt(ctx context.Context) error {
	state, stops, changed := inf.snapshot()
	switch state {
	case InferiorTerminated:
		return ErrTerminated
	case InferiorSuspended:
		return nil
	}

	target, what := inf.session.gdbPID, "debugger"
	if inf.topology.signalsInferiorDirectly() {
		target, what = inf.PID(), "inferior"
	}
	if target <= 0 {
		return fmt.Errorf("%w: %s process ID is not known", ErrNoProcess, what)
	}

	inf.session.log.V(1).Info("Interrupting", "pid", target, "process", what)
	if err := inf.session.signaler.Interrupt(target); err != nil {
		return fmt.Errorf("failed to interrupt %s process %d: %w", what, target, err)
	}

	waitCtx, cancel := onecontext.Merge(ctx, inf.session.lifetime())
	defer cancel()

	var timeout <-chan time.Time
	if inf.session.commandTimeout > 0 {
		timer := time.NewTimer(inf.session.commandTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-changed:
		case <-timeout:
			return ErrInterruptTimeout
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrSessionClosed
		}

		var current InferiorState
		var currentStops uint64
		current, currentStops, changed = inf.snapshot()
		// A stop caused by a signal does not change the inferior state, so stops are counted as well.
		if current != InferiorRunning || currentStops != stops {
			return nil
		}
	}
}

// Destroy terminates the inferior. It does not wait for the debugger to confirm.
// Destroying a terminated inferior is a no-op.
func (inf *Inferior) Destroy(ctx context.Context) error {
	if inf.IsTerminated() {
		return nil
	}

	if inf.IsRunning() {
		// Some targets ignore "kill" while running.
		if interruptErr := inf.Interrupt(ctx); interruptErr != nil {
			inf.session.log.Info("Could not interrupt the inferior before terminating it", "error", interruptErr.Error())
		}
	}

	if err := inf.session.enqueue(NewCommand("kill")); err != nil {
		return fmt.Errorf("failed to terminate the inferior: %w", err)
	}

	inf.setState(InferiorTerminated)
	return nil
}

func (inf *Inferior) snapshot() (InferiorState, uint64, <-chan struct{}) {
	inf.lock.Lock()
	defer inf.lock.Unlock()
	return inf.state, inf.stops, inf.changed
}

// setState changes the state unless the inferior has terminated. Returns true if the state changed.
func (inf *Inferior) setState(s InferiorState) bool {
	inf.lock.Lock()
	defer inf.lock.Unlock()

	if inf.state == InferiorTerminated || inf.state == s {
		return false
	}
	inf.state = s
	inf.broadcastLocked()
	return true
}

// noteStop records a stop record and applies its effect on the inferior state.
func (inf *Inferior) noteStop(effect stateEffect) {
	inf.lock.Lock()
	defer inf.lock.Unlock()

	inf.stops++
	if inf.state != InferiorTerminated {
		switch effect {
		case effectSuspend:
			inf.state = InferiorSuspended
		case effectTerminate:
			inf.state = InferiorTerminated
		}
	}
	inf.broadcastLocked()
}

// resumeRejected returns an inferior that was marked running by a stepping command to the suspended state.
// Used when the command could not be sent or the debugger answered with an error.
func (inf *Inferior) resumeRejected() {
	inf.lock.Lock()
	defer inf.lock.Unlock()

	if inf.state == InferiorRunning {
		inf.state = InferiorSuspended
		inf.broadcastLocked()
	}
}

func (inf *Inferior) markDisconnected() {
	inf.disconnected.Store(true)
	inf.setState(InferiorTerminated)
}

func (inf *Inferior) broadcastLocked() {
	close(inf.changed)
	inf.changed = make(chan struct{})
}
