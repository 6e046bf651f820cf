// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package testutil

import (
	"bytes"
	"io"
	"sync"
)

// BufferWriter is a goroutine-safe io.Writer that records everything written to it.
// It is used as a stream sink in tests; every Write() call is kept as a separate chunk.
type BufferWriter struct {
	lock   *sync.Mutex
	data   []byte
	chunks []string
	closed bool
}

func NewBufferWriter() *BufferWriter {
	return &BufferWriter{
		lock: &sync.Mutex{},
	}
}

func (bw *BufferWriter) Write(p []byte) (int, error) {
	bw.lock.Lock()
	defer bw.lock.Unlock()

	if bw.closed {
		return 0, io.ErrClosedPipe
	}

	bw.chunks = append(bw.chunks, string(p))
	bw.data = append(bw.data, p...)
	return len(p), nil
}

func (bw *BufferWriter) String() string {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	return string(bytes.Clone(bw.data))
}

// Chunks returns a copy of the data passed to each Write() call, in order.
func (bw *BufferWriter) Chunks() []string {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	return append([]string{}, bw.chunks...)
}

func (bw *BufferWriter) Close() error {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	bw.closed = true
	return nil
}

var _ io.WriteCloser = (*BufferWriter)(nil)
