// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package queue

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueReturnsDataInOrder(t *testing.T) {
	t.Parallel()

	q := NewConcurrentQueue[int]()
	for i := 0; i < 100; i++ {
		q.Enqueue(i)
	}
	require.Equal(t, 100, q.Len())
	for i := 0; i < 100; i++ {
		v, ok := q.Dequeue()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok := q.Dequeue()
	require.False(t, ok)
}

// Good test to run with -race option
func TestQueueMultipleProducersBlockingConsumers(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	q := NewConcurrentQueue[int]()
	var producers sync.WaitGroup
	producers.Add(2)
	for p := 0; p < 2; p++ {
		go func(offset int) {
			defer producers.Done()
			for i := 0; i < 1000; i++ {
				q.Enqueue(i + offset)
			}
		}(p * 1000)
	}

	var resultLock sync.Mutex
	var result []int
	var consumers sync.WaitGroup
	consumers.Add(3)
	for c := 0; c < 3; c++ {
		go func() {
			defer consumers.Done()
			for {
				v, err := q.DequeueWait(ctx)
				if err != nil {
					return
				}
				resultLock.Lock()
				result = append(result, v)
				done := len(result) == 2000
				resultLock.Unlock()
				if done {
					cancel()
					return
				}
			}
		}()
	}

	producers.Wait()
	consumers.Wait()

	require.Len(t, result, 2000)
	slices.Sort(result)
	for i := 0; i < 2000; i++ {
		require.Equal(t, i, result[i])
	}
}

func TestQueueDequeueWaitHonorsContext(t *testing.T) {
	t.Parallel()

	q := NewConcurrentQueue[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.DequeueWait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueRemove(t *testing.T) {
	t.Parallel()

	q := NewConcurrentQueue[int]()
	for i := 0; i < 5; i++ {
		q.Enqueue(i)
	}

	v, found := q.Remove(func(v int) bool { return v == 2 })
	require.True(t, found)
	require.Equal(t, 2, v)

	_, found = q.Remove(func(v int) bool { return v == 2 })
	require.False(t, found)

	require.Equal(t, []int{0, 1, 3, 4}, q.Drain())
	require.Equal(t, 0, q.Len())
}
