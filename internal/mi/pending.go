// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"math"
	"sync"
)

// maxToken is the largest token the counter hands out before wrapping back to 1.
// GDB parses tokens as C ints, so larger values would not round-trip.
const maxToken Token = math.MaxInt32

// responseTable is a thread-safe map of transmitted commands keyed by token.
type responseTable struct {
	mu       sync.Mutex
	commands map[Token]*Command
}

func newResponseTable() *responseTable {
	return &responseTable{
		commands: make(map[Token]*Command),
	}
}

// Add registers a transmitted command.
func (t *responseTable) Add(token Token, cmd *Command) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commands[token] = cmd
}

// Take retrieves and removes the command registered under the token.
// Returns nil if no command is waiting for that token.
func (t *responseTable) Take(token Token) *Command {
	t.mu.Lock()
	defer t.mu.Unlock()

	cmd, ok := t.commands[token]
	if !ok {
		return nil
	}

	delete(t.commands, token)
	return cmd
}

func (t *responseTable) Has(token Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.commands[token]
	return ok
}

func (t *responseTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.commands)
}

// Drain removes all commands from the table and returns them.
func (t *responseTable) Drain() []*Command {
	t.mu.Lock()
	defer t.mu.Unlock()

	retval := make([]*Command, 0, len(t.commands))
	for _, cmd := range t.commands {
		retval = append(retval, cmd)
	}
	t.commands = make(map[Token]*Command)
	return retval
}

// tokenCounter hands out tokens 1, 2, 3, ... and wraps back to 1 after maxToken.
type tokenCounter struct {
	mu   sync.Mutex
	last Token
}

func newTokenCounter() *tokenCounter {
	return &tokenCounter{last: NoToken}
}

func (c *tokenCounter) Next() Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last >= maxToken {
		c.last = NoToken
	}
	c.last++
	return c.last
}
