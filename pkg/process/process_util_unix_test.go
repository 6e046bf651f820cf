// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

//go:build !windows

package process

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInterruptStopsDecoupledChild(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("sleep", "30")
	DecoupleFromParent(cmd)
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid
	require.True(t, Exists(pid))

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	require.NoError(t, Interrupt(pid))

	select {
	case err := <-waitErr:
		require.Error(t, err, "sleep should have been terminated by SIGINT")
	case <-time.After(10 * time.Second):
		_ = cmd.Process.Kill()
		require.Fail(t, "child did not exit after SIGINT")
	}

	require.False(t, Exists(pid))
}

func TestExistsRejectsInvalidPID(t *testing.T) {
	t.Parallel()

	require.False(t, Exists(0))
	require.False(t, Exists(-5))
	require.True(t, Exists(os.Getpid()))
}
