// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Transport provides line-oriented access to the debugger's MI streams.
// ReadLine is only called by the session reader and WriteLine only by the session writer,
// but Close may be called from any goroutine and must unblock both.
type Transport interface {
	// ReadLine returns the next line without the line terminator.
	// Returns io.EOF once the debugger has closed its output.
	ReadLine() (string, error)

	// WriteLine writes the text (which includes its own newline) and flushes it.
	WriteLine(text string) error

	Close() error
}

var errTransportClosed = errors.New("transport is closed")

// streamTransport implements Transport over a pair of byte streams, typically the debugger's stdout and stdin.
type streamTransport struct {
	reader *bufio.Reader
	writer *bufio.Writer
	in     io.ReadCloser
	out    io.WriteCloser

	// writeMu protects concurrent writes
	writeMu sync.Mutex

	closed bool
	mu     sync.Mutex
}

// NewStreamTransport creates a Transport that reads MI output from in and writes commands to out.
func NewStreamTransport(in io.ReadCloser, out io.WriteCloser) Transport {
	return &streamTransport{
		reader: bufio.NewReader(in),
		writer: bufio.NewWriter(out),
		in:     in,
		out:    out,
	}
}

func (t *streamTransport) ReadLine() (string, error) {
	if t.isClosed() {
		return "", errTransportClosed
	}

	line, readErr := t.reader.ReadString('\n')
	if readErr != nil {
		if errors.Is(readErr, io.EOF) && line != "" {
			// Last line without a terminator; report EOF on the next call.
			return strings.TrimSuffix(line, "\r"), nil
		}
		if errors.Is(readErr, io.EOF) {
			return "", io.EOF
		}
		return "", fmt.Errorf("failed to read MI output: %w", readErr)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func (t *streamTransport) WriteLine(text string) error {
	if t.isClosed() {
		return errTransportClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, writeErr := t.writer.WriteString(text); writeErr != nil {
		return fmt.Errorf("failed to write MI command: %w", writeErr)
	}

	if flushErr := t.writer.Flush(); flushErr != nil {
		return fmt.Errorf("failed to flush MI command: %w", flushErr)
	}

	return nil
}

func (t *streamTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true
	return errors.Join(t.out.Close(), t.in.Close())
}

func (t *streamTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
