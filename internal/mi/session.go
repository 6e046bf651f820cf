// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/eclipse-cdt/cdt-sub128/internal/pubsub"
	"github.com/eclipse-cdt/cdt-sub128/pkg/container"
	"github.com/eclipse-cdt/cdt-sub128/pkg/telemetry"
)

const (
	// DefaultCommandTimeout is used when SessionConfig.CommandTimeout is zero.
	DefaultCommandTimeout = 10 * time.Second

	// Number of stream records kept as context for stop events.
	streamContextSize = 20

	defaultEventBufferSize = 16

	// Upper bound on waiting for -gdb-exit during Close().
	exitCommandTimeout = 2 * time.Second
)

type SessionState int32

const (
	SessionStopped SessionState = iota
	SessionRunning
)

func (s SessionState) String() string {
	if s == SessionRunning {
		return "running"
	}
	return "stopped"
}

// TransportFailurePolicy decides what happens to outstanding commands when the transport fails.
type TransportFailurePolicy int

const (
	// LogAndContinue logs the failure and keeps the session loops going.
	// Commands affected by the failure are not answered and complete only when their timeout expires.
	LogAndContinue TransportFailurePolicy = iota

	// FailOutstanding completes every queued and in-flight command with a transport error and stops the session.
	FailOutstanding
)

// SessionConfig contains configuration options for the session.
type SessionConfig struct {
	// Transport carries MI text to and from the debugger. Required.
	Transport Transport

	// Logger is the logger for the session. If nil, logging is disabled.
	// Every line exchanged with the debugger is logged at V(1).
	Logger logr.Logger

	// CommandTimeout bounds Post() and waiting for the inferior to stop after an interrupt.
	// If zero, DefaultCommandTimeout is used. If negative, there is no bound.
	CommandTimeout time.Duration

	// TransportFailurePolicy defaults to LogAndContinue.
	TransportFailurePolicy TransportFailurePolicy

	// Topology describes how the debugger is connected to the inferior.
	Topology Topology

	// GDBProcessID is the process ID of the debugger, used to interrupt the inferior.
	GDBProcessID int

	// InferiorProcessID is the process ID of the inferior, if known in advance (e.g. when attaching).
	InferiorProcessID int

	// Signaler delivers interrupts. If nil, OSSignaler is used.
	Signaler Signaler

	// Console, Target and Log receive the text of console (~), target (@) and log (&) stream records.
	// Nil sinks discard the text. Launch also copies the debugger's stderr to Log and serializes those writes.
	Console io.Writer
	Target  io.Writer
	Log     io.Writer

	// Tracer creates a span for every posted command. If nil, the global otel tracer is used.
	Tracer trace.Tracer

	// Meter records the number of posted commands by outcome. If nil, the global otel meter is used.
	Meter metric.Meter

	// EventBufferSize is the initial capacity of channels returned by Events().
	// If zero, defaults to 16.
	EventBufferSize int

	// Listeners are registered before the session starts, so they see every event.
	Listeners []Listener
}

// Session drives one debugger process.
type Session struct {
	id             string
	transport      Transport
	log            logr.Logger
	commandTimeout time.Duration
	failurePolicy  TransportFailurePolicy
	signaler       Signaler
	gdbPID         int
	console        io.Writer
	target         io.Writer
	logSink        io.Writer
	tracer         trace.Tracer
	commands       metric.Int64Counter
	eventBufSize   int

	queue      *commandQueue
	table      *responseTable
	tokens     *tokenCounter
	dispatcher *dispatcher
	inferior   *Inferior

	state       atomic.Int32
	writerAlive atomic.Bool
	closing     atomic.Bool
	closed      atomic.Bool
	gdbVersion  atomic.Pointer[semver.Version]

	// Only accessed by the reader goroutine.
	recentStreams *container.RingBuffer[*StreamRecord]

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	startOnce   sync.Once
	closeOnce   sync.Once
	inboundDone chan struct{}

	// Set when a loop ends because of a failure; reported by Close().
	loopErr   error
	loopErrMu sync.Mutex
}

// NewSession creates a session over the given transport. Call Start() to begin exchanging commands.
func NewSession(config SessionConfig) *Session {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	id := uuid.New().String()
	log = log.WithValues("session", id)

	timeout := config.CommandTimeout
	switch {
	case timeout == 0:
		timeout = DefaultCommandTimeout
	case timeout < 0:
		timeout = 0
	}

	signaler := config.Signaler
	if signaler == nil {
		signaler = OSSignaler{}
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = telemetry.DefaultTracer()
	}

	meter := config.Meter
	if meter == nil {
		meter = telemetry.DefaultMeter()
	}

	eventBufSize := config.EventBufferSize
	if eventBufSize <= 0 {
		eventBufSize = defaultEventBufferSize
	}

	s := &Session{
		id:             id,
		transport:      config.Transport,
		log:            log,
		commandTimeout: timeout,
		failurePolicy:  config.TransportFailurePolicy,
		signaler:       signaler,
		gdbPID:         config.GDBProcessID,
		console:        orDiscard(config.Console),
		target:         orDiscard(config.Target),
		logSink:        orDiscard(config.Log),
		tracer:         tracer,
		commands:       telemetry.NewInt64Counter(meter, "gdbmi.commands", "Commands posted to the debugger"),
		eventBufSize:   eventBufSize,
		queue:          newCommandQueue(),
		table:          newResponseTable(),
		tokens:         newTokenCounter(),
		dispatcher:     newDispatcher(log),
		recentStreams:  container.NewBoundedRingBuffer[*StreamRecord](streamContextSize),
		inboundDone:    make(chan struct{}),
	}
	s.inferior = newInferior(s, config.Topology, config.InferiorProcessID)
	s.state.Store(int32(SessionStopped))
	for _, l := range config.Listeners {
		s.dispatcher.register(l)
	}
	return s
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// Start launches the writer and reader goroutines. It does not block.
// The session runs until ctx is cancelled or Close() is called.
func (s *Session) Start(ctx context.Context) error {
	started := false
	s.startOnce.Do(func() {
		started = true
		s.ctx, s.cancel = context.WithCancel(ctx)
		s.writerAlive.Store(true)

		s.wg.Add(2)
		go s.writerLoop()
		go s.readerLoop()
	})
	if !started {
		return fmt.Errorf("session %s has already been started", s.id)
	}
	return nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) IsStopped() bool {
	return s.State() == SessionStopped
}

func (s *Session) IsRunning() bool {
	return s.State() == SessionRunning
}

func (s *Session) Inferior() *Inferior {
	return s.inferior
}

// CommandTimeout returns the effective default command timeout (zero means unbounded).
func (s *Session) CommandTimeout() time.Duration {
	return s.commandTimeout
}

// GDBVersion returns the debugger version announced in its banner, or nil if it is not known yet.
func (s *Session) GDBVersion() *semver.Version {
	return s.gdbVersion.Load()
}

// Done returns a channel that is closed when the debugger output ends.
func (s *Session) Done() <-chan struct{} {
	return s.inboundDone
}

// RegisterListener adds a listener for session events.
func (s *Session) RegisterListener(l Listener) ListenerID {
	return s.dispatcher.register(l)
}

// UnregisterListener removes a listener. It is safe to call from within the listener.
// Returns false if the listener is not registered.
func (s *Session) UnregisterListener(id ListenerID) bool {
	return s.dispatcher.unregister(id)
}

// Events returns an unbounded channel of session events.
// The channel is closed when ctx is done or the session closes.
func (s *Session) Events(ctx context.Context) <-chan Event {
	return s.dispatcher.subscribe(ctx, s.eventBufSize)
}

// Subscribe delivers session events to the sink until the subscription is cancelled.
// The sink should never block for long; a slow sink delays delivery of later events to other subscribers.
func (s *Session) Subscribe(sink chan<- Event) *pubsub.Subscription[Event] {
	return s.dispatcher.subscriptions.Subscribe(sink)
}

// Post sends a command and waits for its result, bounded by the session command timeout.
func (s *Session) Post(ctx context.Context, cmd *Command) Outcome {
	return s.PostCommand(ctx, cmd, s.commandTimeout)
}

// PostCommand sends a command and waits until its result record arrives, the timeout expires or ctx is done.
// A zero timeout waits without bound. An MI error result is a successful correlation (OutcomeOK);
// use Outcome.Err() to treat it as an error.
// If the command is still queued when the wait ends, it is retracted and never sent.
func (s *Session) PostCommand(ctx context.Context, cmd *Command, timeout time.Duration) Outcome {
	outcome, _ := telemetry.CallWithTelemetry(s.tracer, "mi.PostCommand", ctx, func(spanCtx context.Context) (Outcome, error) {
		o := s.postCommand(spanCtx, cmd, timeout)
		telemetry.SetAttribute(spanCtx, "mi.operation", cmd.Operation())
		telemetry.SetAttribute(spanCtx, "mi.token", int(o.Token))
		telemetry.SetAttribute(spanCtx, "mi.outcome", o.Kind.String())
		if o.Output.Result != nil {
			telemetry.SetAttribute(spanCtx, "mi.class", string(o.Output.Result.Class))
		}
		return o, o.Err()
	})
	s.commands.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.Kind.String())))
	return outcome
}

func (s *Session) postCommand(ctx context.Context, cmd *Command, timeout time.Duration) Outcome {
	if err := s.enqueue(cmd); err != nil {
		return failedOutcome(cmd, OutcomeTransportError, err)
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-cmd.Done():
		return outcomeOf(cmd)

	case <-expired:
		s.abandon(cmd, ErrCommandTimeout)
		s.log.V(1).Info("Command timed out", "operation", cmd.Operation(), "token", cmd.Token(), "timeout", timeout)
		return outcomeOf(cmd)

	case <-ctx.Done():
		s.abandon(cmd, ctx.Err())
		return outcomeOf(cmd)
	}
}

// enqueue hands a command to the writer without waiting for the result.
func (s *Session) enqueue(cmd *Command) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !s.writerAlive.Load() {
		return ErrWriterNotRunning
	}
	s.queue.Push(cmd)
	return nil
}

// abandon gives up on a command: it is retracted if still queued, or forgotten if in flight.
// A result that arrives before the command is abandoned wins.
func (s *Session) abandon(cmd *Command, err error) {
	if _, removed := s.queue.Remove(cmd.id.Load()); !removed {
		if token := cmd.Token(); token != NoToken {
			s.table.Take(token)
		}
	}
	cmd.complete(Output{}, err)
}

// Cancel retracts a command that has been posted but not yet transmitted.
// The command completes with OutcomeCanceled and is never sent.
// Returns ErrNotQueued if the command has already been transmitted (or was never posted);
// in-flight commands can only time out.
func (s *Session) Cancel(cmd *Command) error {
	if _, removed := s.queue.Remove(cmd.id.Load()); !removed {
		return ErrNotQueued
	}
	cmd.complete(Output{}, context.Canceled)
	return nil
}

// Interrupt stops the running inferior; see Inferior.Interrupt.
func (s *Session) Interrupt(ctx context.Context) error {
	return s.inferior.Interrupt(ctx)
}

// Destroy terminates the inferior; see Inferior.Destroy.
func (s *Session) Destroy(ctx context.Context) error {
	return s.inferior.Destroy(ctx)
}

// Detach detaches the debugger from the inferior. MI does not report detaching,
// so on success the session emits a detached event itself and marks the inferior disconnected.
func (s *Session) Detach(ctx context.Context) error {
	o := s.Post(ctx, NewCommand("-target-detach"))
	if err := o.Err(); err != nil {
		return fmt.Errorf("failed to detach: %w", err)
	}

	s.inferior.markDisconnected()
	s.dispatcher.dispatch([]Event{{Kind: EventDetached, Token: o.Token}})
	return nil
}

// Close asks the debugger to exit, stops both loops and completes every outstanding command with ErrSessionClosed.
func (s *Session) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		if s.ctx == nil {
			// Never started.
			s.closed.Store(true)
			s.failOutstanding(ErrSessionClosed)
			closeErr = s.transport.Close()
			return
		}

		select {
		case <-s.inboundDone:
		default:
			if s.writerAlive.Load() {
				timeout := exitCommandTimeout
				if s.commandTimeout > 0 && s.commandTimeout < timeout {
					timeout = s.commandTimeout
				}
				exit := s.PostCommand(context.Background(), NewCommand("-gdb-exit"), timeout)
				if !exit.OK() {
					s.log.V(1).Info("Debugger did not acknowledge -gdb-exit", "outcome", exit.Kind.String())
				}
			}
		}

		s.closed.Store(true)
		s.cancel()
		transportErr := s.transport.Close()
		s.wg.Wait()

		s.failOutstanding(ErrSessionClosed)
		s.dispatcher.close()

		s.loopErrMu.Lock()
		loopErr := s.loopErr
		s.loopErrMu.Unlock()

		closeErr = errors.Join(filterContextError(loopErr, s.ctx, s.log), transportErr)
	})
	return closeErr
}

// lifetime returns a context that is done when the session loops stop.
func (s *Session) lifetime() context.Context {
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// WaitForEvents blocks until events that have already been synthesized are delivered, or ctx is done.
func (s *Session) WaitForEvents(ctx context.Context) {
	s.dispatcher.wait(ctx)
}

func (s *Session) setState(state SessionState) {
	s.state.Store(int32(state))
}

func (s *Session) onTransportFailure(err error) {
	s.log.Error(err, "Debugger transport failure")
	if s.failurePolicy == FailOutstanding {
		s.stopWithError(err)
	}
}

// stopWithError stops the session loops and completes every outstanding command with the error.
func (s *Session) stopWithError(err error) {
	s.recordLoopError(err)
	s.writerAlive.Store(false)
	s.cancel()
	s.failOutstanding(err)
}

func (s *Session) failOutstanding(err error) {
	for _, cmd := range s.queue.Drain() {
		cmd.complete(Output{}, err)
	}
	for _, cmd := range s.table.Drain() {
		cmd.complete(Output{}, err)
	}
}

func (s *Session) recordLoopError(err error) {
	s.loopErrMu.Lock()
	defer s.loopErrMu.Unlock()
	if s.loopErr == nil {
		s.loopErr = err
	}
}
