// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"github.com/smallnest/chanx"

	"github.com/eclipse-cdt/cdt-sub128/internal/pubsub"
	"github.com/eclipse-cdt/cdt-sub128/pkg/resiliency"
)

// Listener receives session events. Calls happen on dispatcher goroutines, never on the reader goroutine.
type Listener interface {
	OnEvent(e Event)
}

type ListenerFunc func(e Event)

func (f ListenerFunc) OnEvent(e Event) {
	f(e)
}

type ListenerID uint64

type listenerEntry struct {
	id       ListenerID
	listener Listener
}

// dispatcher delivers events to listeners and channel subscribers.
// Each batch of events is delivered by a new goroutine; events within a batch are delivered in order,
// but batches may be delivered concurrently.
type dispatcher struct {
	log           logr.Logger
	lock          *sync.Mutex
	listeners     []listenerEntry
	lastID        ListenerID
	subscriptions *pubsub.SubscriptionSet[Event]
	inflight      *sync.WaitGroup
}

func newDispatcher(log logr.Logger) *dispatcher {
	return &dispatcher{
		log:           log,
		lock:          &sync.Mutex{},
		subscriptions: pubsub.NewSubscriptionSet[Event](),
		inflight:      &sync.WaitGroup{},
	}
}

func (d *dispatcher) register(l Listener) ListenerID {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.lastID++
	d.listeners = append(d.listeners, listenerEntry{id: d.lastID, listener: l})
	return d.lastID
}

func (d *dispatcher) unregister(id ListenerID) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	for i, e := range d.listeners {
		if e.id == id {
			d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot copies the listener list, so that listeners can unregister themselves during delivery.
func (d *dispatcher) snapshot() []listenerEntry {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]listenerEntry(nil), d.listeners...)
}

func (d *dispatcher) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()

		listeners := d.snapshot()
		for _, e := range events {
			for _, le := range listeners {
				d.deliver(le, e)
			}
			d.subscriptions.Notify(e)
		}
	}()
}

func (d *dispatcher) deliver(le listenerEntry, e Event) {
	defer func() {
		if panicErr := resiliency.MakePanicError(recover(), d.log.WithValues("listener", le.id, "event", e.Kind)); panicErr != nil {
			d.log.Info("Event listener panicked; the remaining listeners will still be notified")
		}
	}()
	le.listener.OnEvent(e)
}

// subscribe feeds events into an unbounded channel until ctx is done or the session closes.
func (d *dispatcher) subscribe(ctx context.Context, initialCapacity int) <-chan Event {
	ch := chanx.NewUnboundedChan[Event](ctx, initialCapacity)
	sub := d.subscriptions.Subscribe(ch.In)
	go func() {
		select {
		case <-ctx.Done():
			sub.Cancel()
		case <-sub.Done():
		}
	}()
	return ch.Out
}

// wait blocks until in-flight batches are delivered or ctx is done.
func (d *dispatcher) wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (d *dispatcher) close() {
	d.subscriptions.CancelAll()
}
