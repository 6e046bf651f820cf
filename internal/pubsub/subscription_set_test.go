// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package pubsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubscriptionSetDeliversToAllSubscribers(t *testing.T) {
	t.Parallel()

	ss := NewSubscriptionSet[int]()
	sink1 := make(chan int, 10)
	sink2 := make(chan int, 10)
	sub1 := ss.Subscribe(sink1)
	sub2 := ss.Subscribe(sink2)
	require.NotEqual(t, sub1.Handle, sub2.Handle)
	require.Equal(t, 2, ss.Len())

	ss.Notify(7)
	require.Equal(t, 7, <-sink1)
	require.Equal(t, 7, <-sink2)

	sub1.Cancel()
	require.True(t, sub1.Cancelled())
	require.Equal(t, 1, ss.Len())
	_, open := <-sink1
	require.False(t, open, "sink should be closed after cancellation")

	ss.Notify(8)
	require.Equal(t, 8, <-sink2)

	ss.CancelAll()
	require.Equal(t, 0, ss.Len())
	_, open = <-sink2
	require.False(t, open)
}

func TestCancelUnblocksPendingNotify(t *testing.T) {
	t.Parallel()

	ss := NewSubscriptionSet[string]()
	sink := make(chan string) // Nobody reads from this channel.
	sub := ss.Subscribe(sink)

	notified := make(chan struct{})
	go func() {
		ss.Notify("stuck")
		close(notified)
	}()

	// Give Notify() a chance to block on the sink.
	time.Sleep(20 * time.Millisecond)
	sub.Cancel()

	select {
	case <-notified:
	case <-time.After(5 * time.Second):
		require.Fail(t, "Notify() was not unblocked by Cancel()")
	}

	// Cancelling twice is harmless.
	sub.Cancel()
	require.False(t, sub.Notify("after cancel"))
}
