// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package pubsub

import (
	"sync"
)

type HandleT uint32

const (
	InvalidHandle HandleT = 0
)

// Subscription delivers notifications to a single channel sink.
// The sink is closed when the subscription is cancelled.
type Subscription[NotificationT any] struct {
	Handle     HandleT
	sink       chan<- NotificationT
	owner      *SubscriptionSet[NotificationT]
	lock       *sync.RWMutex
	cancelled  chan struct{}
	cancelOnce *sync.Once
}

func newSubscription[NotificationT any](owner *SubscriptionSet[NotificationT], handle HandleT, sink chan<- NotificationT) *Subscription[NotificationT] {
	return &Subscription[NotificationT]{
		Handle:     handle,
		sink:       sink,
		owner:      owner,
		lock:       &sync.RWMutex{},
		cancelled:  make(chan struct{}),
		cancelOnce: &sync.Once{},
	}
}

func (es *Subscription[NotificationT]) Cancel() {
	es.cancelOnce.Do(func() {
		// Unblock in-flight Notify() calls before taking the write lock.
		close(es.cancelled)

		es.lock.Lock()
		close(es.sink)
		es.sink = nil
		es.lock.Unlock()

		es.owner.onSubscriptionCancelled(es.Handle)
	})
}

// Notify blocks until the sink accepts the notification or the subscription is cancelled.
// Returns false if the notification was not delivered.
func (es *Subscription[NotificationT]) Notify(n NotificationT) bool {
	es.lock.RLock()
	defer es.lock.RUnlock()

	if es.sink == nil {
		return false
	}

	select {
	case es.sink <- n:
		return true
	case <-es.cancelled:
		return false
	}
}

// Done returns a channel that is closed when the subscription is cancelled.
func (es *Subscription[NotificationT]) Done() <-chan struct{} {
	return es.cancelled
}

func (es *Subscription[NotificationT]) Cancelled() bool {
	select {
	case <-es.cancelled:
		return true
	default:
		return false
	}
}
