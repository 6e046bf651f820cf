// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package queue implements a generic, thread-safe, unbounded FIFO queue using a single lock and a ring buffer.
// Items can be retracted from the middle of the queue as long as they have not been dequeued yet.
package queue

import (
	"context"
	"sync"

	"github.com/eclipse-cdt/cdt-sub128/pkg/concurrency"
	"github.com/eclipse-cdt/cdt-sub128/pkg/container"
)

type ConcurrentQueue[T any] struct {
	lock    *sync.Mutex
	newData *concurrency.AutoResetEvent
	buf     *container.RingBuffer[T]
}

func NewConcurrentQueue[T any]() *ConcurrentQueue[T] {
	return &ConcurrentQueue[T]{
		lock:    &sync.Mutex{},
		buf:     container.NewRingBuffer[T](),
		newData: concurrency.NewAutoResetEvent(false),
	}
}

// Enqueue never blocks. It wakes up one goroutine blocked in DequeueWait(), if any.
func (q *ConcurrentQueue[T]) Enqueue(v T) {
	q.lock.Lock()
	defer q.lock.Unlock()
	defer q.newData.Set()
	q.buf.Push(v)
}

func (q *ConcurrentQueue[T]) Dequeue() (T, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.dequeueLocked()
}

// DequeueWait blocks until an item is available or the context is done.
func (q *ConcurrentQueue[T]) DequeueWait(ctx context.Context) (T, error) {
	for {
		q.lock.Lock()
		v, found := q.dequeueLocked()
		q.lock.Unlock()
		if found {
			return v, nil
		}

		select {
		case <-q.newData.Wait():
		case <-ctx.Done():
			return *new(T), ctx.Err()
		}
	}
}

// Remove retracts the oldest item for which match returns true.
func (q *ConcurrentQueue[T]) Remove(match func(T) bool) (T, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.buf.RemoveFunc(match)
}

// Drain removes and returns all queued items, oldest first.
func (q *ConcurrentQueue[T]) Drain() []T {
	q.lock.Lock()
	defer q.lock.Unlock()
	retval := q.buf.Values()
	q.buf.Clear()
	return retval
}

func (q *ConcurrentQueue[T]) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.buf.Len()
}

func (q *ConcurrentQueue[T]) dequeueLocked() (T, bool) {
	v, found := q.buf.Pop()
	if found && !q.buf.Empty() {
		// The wakeup that brought us here may have been shared by several Enqueue() calls.
		// Pass it on so that another waiter can pick up the remaining items.
		q.newData.Set()
	}
	return v, found
}
