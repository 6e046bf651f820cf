// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package container

const (
	minSize      = 8 // Must be a power of 2
	growthFactor = 2
	shrinkFactor = 4

	UnlimitedCapacity = 0
)

// RingBuffer is a FIFO buffer that grows as needed when new items are added.
// A bounded ring buffer discards the oldest item when it is full.
// It is not goroutine-safe.
type RingBuffer[T any] struct {
	buf      []T
	len      int // how many items in the buffer
	head     int // read index
	tail     int // write index
	capacity int // max number of items in the buffer (0 for unlimited)
}

func NewRingBuffer[T any]() *RingBuffer[T] {
	return &RingBuffer[T]{
		buf:      make([]T, minSize),
		capacity: UnlimitedCapacity,
	}
}

func NewBoundedRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		return NewRingBuffer[T]()
	}

	bufSize := minSize
	for bufSize < capacity {
		bufSize *= growthFactor
	}
	return &RingBuffer[T]{
		buf:      make([]T, bufSize),
		capacity: capacity,
	}
}

// Push appends an item at the tail of the buffer.
// If the buffer is bounded and full, the oldest item is discarded.
func (rb *RingBuffer[T]) Push(v T) {
	if rb.capacity != UnlimitedCapacity && rb.len == rb.capacity {
		var zero T
		rb.buf[rb.head] = zero
		rb.head = rb.next(rb.head)
		rb.buf[rb.tail] = v
		rb.tail = rb.next(rb.tail)
		return
	}

	if rb.len == len(rb.buf) {
		rb.resize(rb.len * growthFactor)
	}

	rb.buf[rb.tail] = v
	rb.tail = rb.next(rb.tail)
	rb.len++
}

// Pop removes and returns the oldest item.
// The second value is false if the buffer was empty.
func (rb *RingBuffer[T]) Pop() (T, bool) {
	var zero T
	if rb.len == 0 {
		return zero, false
	}

	v := rb.buf[rb.head]
	rb.buf[rb.head] = zero
	rb.head = rb.next(rb.head)
	rb.len--
	rb.maybeShrink()

	return v, true
}

// RemoveFunc removes the oldest item for which match returns true.
// Items behind the removed one keep their relative order.
func (rb *RingBuffer[T]) RemoveFunc(match func(T) bool) (T, bool) {
	var zero T
	for i := 0; i < rb.len; i++ {
		idx := (rb.head + i) % len(rb.buf)
		if !match(rb.buf[idx]) {
			continue
		}

		v := rb.buf[idx]
		for j := i; j < rb.len-1; j++ {
			rb.buf[(rb.head+j)%len(rb.buf)] = rb.buf[(rb.head+j+1)%len(rb.buf)]
		}
		rb.tail = rb.prev(rb.tail)
		rb.buf[rb.tail] = zero
		rb.len--
		rb.maybeShrink()
		return v, true
	}

	return zero, false
}

func (rb *RingBuffer[T]) Peek() (T, bool) {
	var zero T
	if rb.len == 0 {
		return zero, false
	}
	return rb.buf[rb.head], true
}

func (rb *RingBuffer[T]) PeekAt(index int) (T, bool) {
	var zero T
	if index < 0 || index >= rb.len {
		return zero, false
	}
	return rb.buf[(rb.head+index)%len(rb.buf)], true
}

// Values returns a copy of the buffer contents, oldest first.
func (rb *RingBuffer[T]) Values() []T {
	retval := make([]T, rb.len)
	for i := 0; i < rb.len; i++ {
		retval[i] = rb.buf[(rb.head+i)%len(rb.buf)]
	}
	return retval
}

// Clear removes all items from the buffer.
func (rb *RingBuffer[T]) Clear() {
	rb.buf = make([]T, minSize)
	rb.len = 0
	rb.head = 0
	rb.tail = 0
}

func (rb *RingBuffer[T]) Len() int {
	return rb.len
}

func (rb *RingBuffer[T]) Empty() bool {
	return rb.len == 0
}

func (rb *RingBuffer[T]) Capacity() int {
	return rb.capacity
}

func (rb *RingBuffer[T]) next(i int) int {
	return (i + 1) % len(rb.buf)
}

func (rb *RingBuffer[T]) prev(i int) int {
	bufLen := len(rb.buf)
	return (i - 1 + bufLen) % bufLen
}

func (rb *RingBuffer[T]) maybeShrink() {
	if rb.capacity != UnlimitedCapacity {
		return
	}
	bufSize := len(rb.buf)
	if rb.len <= bufSize/shrinkFactor && bufSize/growthFactor >= minSize {
		rb.resize(bufSize / growthFactor)
	}
}

func (rb *RingBuffer[T]) resize(newSize int) {
	newBuf := make([]T, newSize)
	for i := 0; i < rb.len; i++ {
		newBuf[i] = rb.buf[(rb.head+i)%len(rb.buf)]
	}
	rb.head = 0
	rb.tail = rb.len % newSize
	rb.buf = newBuf
}
