// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package concurrency

// AutoResetEvent wakes at most one waiter per Set() call.
// Multiple Set() calls without an intervening wait collapse into a single wakeup.
type AutoResetEvent struct {
	channel chan struct{}
}

func NewAutoResetEvent(initialState bool) *AutoResetEvent {
	retval := &AutoResetEvent{
		channel: make(chan struct{}, 1),
	}
	if initialState {
		retval.Set()
	}
	return retval
}

// Wait returns a channel that yields a value once the event is set.
// Receiving from the channel resets the event.
func (e *AutoResetEvent) Wait() <-chan struct{} {
	return e.channel
}

func (e *AutoResetEvent) Set() {
	// Non-blocking for caller
	select {
	case e.channel <- struct{}{}:
	default:
	}
}

func (e *AutoResetEvent) Clear() {
	select {
	case <-e.channel:
	default:
	}
}
