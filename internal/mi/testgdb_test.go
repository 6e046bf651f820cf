// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/eclipse-cdt/cdt-sub128/pkg/testutil"
)

const (
	receiveTimeout = 5 * time.Second
	pollInterval   = 10 * time.Millisecond
	pollTimeout    = 5 * time.Second
)

// mockTransport plays the debugger side of the session.
// Lines written by the session can be read with Receive(); debugger output is injected with Inject().
type mockTransport struct {
	readChan  chan string
	writeChan chan string

	// When set, writes block until the gate is closed.
	gate chan struct{}
	// When set, writes fail with this error.
	writeErr error

	mu         sync.Mutex
	readClosed bool
	closed     bool
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		readChan:  make(chan string, 100),
		writeChan: make(chan string, 100),
	}
}

func (t *mockTransport) ReadLine() (string, error) {
	line, ok := <-t.readChan
	if !ok {
		return "", io.EOF
	}
	return line, nil
}

func (t *mockTransport) WriteLine(text string) error {
	t.mu.Lock()
	gate, writeErr, closed := t.gate, t.writeErr, t.closed
	t.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if closed {
		return errTransportClosed
	}
	if writeErr != nil {
		return writeErr
	}

	t.writeChan <- strings.TrimSuffix(text, "\n")
	return nil
}

func (t *mockTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.endOutputLocked()
	return nil
}

// Inject simulates the debugger printing the lines.
func (t *mockTransport) Inject(lines ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.readClosed {
		return
	}
	for _, l := range lines {
		t.readChan <- l
	}
}

// Respond injects the lines followed by the prompt.
func (t *mockTransport) Respond(lines ...string) {
	t.Inject(append(lines, PromptLine)...)
}

// EndOutput simulates the debugger closing its output.
func (t *mockTransport) EndOutput() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endOutputLocked()
}

func (t *mockTransport) endOutputLocked() {
	if !t.readClosed {
		t.readClosed = true
		close(t.readChan)
	}
}

// Receive gets the next line written to the debugger.
func (t *mockTransport) Receive(timeout time.Duration) (string, bool) {
	select {
	case line := <-t.writeChan:
		return line, true
	case <-time.After(timeout):
		return "", false
	}
}

func (t *mockTransport) blockWrites() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gate = make(chan struct{})
}

func (t *mockTransport) unblockWrites() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gate != nil {
		close(t.gate)
		t.gate = nil
	}
}

func (t *mockTransport) failWrites(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

var _ Transport = (*mockTransport)(nil)

// startSession starts a session over a new mock transport. The debugger output is ended when the test completes.
func startSession(t *testing.T, config SessionConfig) (*Session, *mockTransport) {
	tr := newMockTransport()
	return startSessionOver(t, tr, config), tr
}

func startSessionOver(t *testing.T, tr *mockTransport, config SessionConfig) *Session {
	config.Transport = tr
	if config.Logger.GetSink() == nil {
		config.Logger = testutil.NewLogForTesting(t.Name())
	}

	s := NewSession(config)
	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	require.NoError(t, s.Start(ctx))

	t.Cleanup(func() {
		tr.unblockWrites()
		tr.EndOutput()
		select {
		case <-s.Done():
		case <-time.After(receiveTimeout):
		}
		_ = s.Close()
		cancel()
	})
	return s
}

// receiveCommand reads the next command written to the debugger and splits off its token.
func receiveCommand(t *testing.T, tr *mockTransport) (Token, string) {
	line, ok := tr.Receive(receiveTimeout)
	require.True(t, ok, "no command was written to the debugger")

	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 {
		return NoToken, line
	}
	token, err := strconv.Atoi(line[:i])
	require.NoError(t, err)
	return Token(token), line[i:]
}

func requireNoWrite(t *testing.T, tr *mockTransport) {
	line, written := tr.Receive(100 * time.Millisecond)
	require.False(t, written, "unexpected command written to the debugger: %s", line)
}

func postAsync(ctx context.Context, s *Session, cmd *Command, timeout time.Duration) <-chan Outcome {
	result := make(chan Outcome, 1)
	go func() {
		result <- s.PostCommand(ctx, cmd, timeout)
	}()
	return result
}

func awaitOutcome(t *testing.T, result <-chan Outcome) Outcome {
	select {
	case o := <-result:
		return o
	case <-time.After(receiveTimeout):
		require.Fail(t, "command did not complete")
		return Outcome{}
	}
}

func receiveEvent(t *testing.T, events <-chan Event) Event {
	select {
	case e, ok := <-events:
		require.True(t, ok, "event channel closed")
		return e
	case <-time.After(receiveTimeout):
		require.Fail(t, "no event received")
		return Event{}
	}
}

func requireNoEvent(t *testing.T, events <-chan Event) {
	select {
	case e, ok := <-events:
		if ok {
			require.Fail(t, "unexpected event", "kind: %s", e.Kind)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func pollUntil(t *testing.T, condition func() bool) {
	err := wait.PollUntilContextTimeout(context.Background(), pollInterval, pollTimeout, true, func(_ context.Context) (bool, error) {
		return condition(), nil
	})
	require.NoError(t, err)
}

// setRunning simulates the debugger reporting that the inferior resumed.
func setRunning(t *testing.T, s *Session, tr *mockTransport) {
	tr.Respond(`*running,thread-id="all"`)
	pollUntil(t, s.Inferior().IsRunning)
}
