// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package pubsub

import (
	"maps"
	"slices"
	"sync"
)

// The subscription set manages a set of subscriptions that share the same source of notifications.
// The set is copied before every notification, so a subscription may be cancelled
// (even from the goroutine that consumes its sink) while a notification is being delivered.
type SubscriptionSet[NotificationT any] struct {
	subscriptions map[HandleT]*Subscription[NotificationT]
	lastHandle    HandleT
	mutex         *sync.Mutex
}

func NewSubscriptionSet[NotificationT any]() *SubscriptionSet[NotificationT] {
	return &SubscriptionSet[NotificationT]{
		subscriptions: make(map[HandleT]*Subscription[NotificationT]),
		mutex:         &sync.Mutex{},
	}
}

func (ss *SubscriptionSet[NotificationT]) Subscribe(sink chan<- NotificationT) *Subscription[NotificationT] {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	ss.lastHandle++
	if ss.lastHandle == InvalidHandle {
		ss.lastHandle++
	}
	sub := newSubscription(ss, ss.lastHandle, sink)
	ss.subscriptions[sub.Handle] = sub
	return sub
}

func (ss *SubscriptionSet[NotificationT]) Notify(n NotificationT) {
	for _, sub := range ss.snapshot() {
		sub.Notify(n)
	}
}

func (ss *SubscriptionSet[NotificationT]) Len() int {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	return len(ss.subscriptions)
}

func (ss *SubscriptionSet[NotificationT]) CancelAll() {
	for _, sub := range ss.snapshot() {
		sub.Cancel()
	}
}

func (ss *SubscriptionSet[NotificationT]) snapshot() []*Subscription[NotificationT] {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	return slices.Collect(maps.Values(ss.subscriptions))
}

func (ss *SubscriptionSet[NotificationT]) onSubscriptionCancelled(handle HandleT) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	delete(ss.subscriptions, handle) // This is a no-op if the handle does not exist.
}
