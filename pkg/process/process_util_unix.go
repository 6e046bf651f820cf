// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

//go:build !windows

package process

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Use separate process group so that a terminal SIGINT aimed at this process does not reach the child.
// The child can still be interrupted explicitly with Interrupt().
func DecoupleFromParent(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// Interrupt delivers SIGINT to the process with the given PID.
func Interrupt(pid int) error {
	return unix.Kill(pid, unix.SIGINT)
}

// Exists reports whether a process with the given PID is alive and can be signalled.
func Exists(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, syscall.Signal(0))
	return err == nil || err == unix.EPERM
}
