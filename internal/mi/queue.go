// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"context"
	"sync/atomic"

	"github.com/eclipse-cdt/cdt-sub128/pkg/queue"
)

// commandQueue holds commands that have been posted but not yet transmitted.
type commandQueue struct {
	q      *queue.ConcurrentQueue[*Command]
	lastID atomic.Uint64
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		q: queue.NewConcurrentQueue[*Command](),
	}
}

// Push never blocks. It assigns the command a queue id that can be used to retract it.
func (cq *commandQueue) Push(cmd *Command) uint64 {
	id := cq.lastID.Add(1)
	cmd.id.Store(id)
	cq.q.Enqueue(cmd)
	return id
}

// Pop blocks until a command is available or the context is done.
func (cq *commandQueue) Pop(ctx context.Context) (*Command, error) {
	return cq.q.DequeueWait(ctx)
}

// Remove retracts a queued command. Returns false if the command has already been popped.
func (cq *commandQueue) Remove(id uint64) (*Command, bool) {
	return cq.q.Remove(func(c *Command) bool {
		return c.id.Load() == id
	})
}

func (cq *commandQueue) Drain() []*Command {
	return cq.q.Drain()
}

func (cq *commandQueue) Len() int {
	return cq.q.Len()
}
