// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package mi drives a GDB process through its Machine Interface (MI) text protocol.
//
// A Session owns two long-lived goroutines:
//   - the writer pops Commands from an unbounded FIFO queue, assigns each a token,
//     registers it in the response table and writes "<token><operation>\n" to the debugger;
//   - the reader buffers debugger output until the "(gdb)" prompt, parses the chunk into an Output,
//     completes the Command whose token matches the result record and synthesizes Events
//     from out-of-band records.
//
// Events produced by one Output are delivered to listeners on a separate, short-lived goroutine,
// so that slow listeners never stall protocol reading.
// PostCommand returns an Outcome that distinguishes a correlated result (which may carry an MI error)
// from a client-side timeout and from a transport failure.
package mi
