// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package commands

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eclipse-cdt/cdt-sub128/internal/mi"
	"github.com/eclipse-cdt/cdt-sub128/internal/version"
	"github.com/eclipse-cdt/cdt-sub128/pkg/logger"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	t.Parallel()

	root, err := NewRootCmd(logger.New("gdbmi-test"))
	require.NoError(t, err)

	for _, name := range []string{"run", "attach", "connect", "version"} {
		cmd, _, findErr := root.Find([]string{name})
		require.NoError(t, findErr)
		require.Equal(t, name, cmd.Name())
	}

	require.NotNil(t, root.PersistentFlags().Lookup("verbosity"))
	require.NotNil(t, root.PersistentFlags().Lookup("dap-events"))
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	root, err := NewRootCmd(logger.New("gdbmi-test"))
	require.NoError(t, err)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())

	var v version.VersionOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	require.Equal(t, version.DevelopmentVersion, v.Version)
	require.Equal(t, mi.MinimumGDBVersion.String(), v.MinimumGDBVersion)
}

func TestAttachRejectsInvalidPID(t *testing.T) {
	t.Parallel()

	root, err := NewRootCmd(logger.New("gdbmi-test"))
	require.NoError(t, err)

	root.SetArgs([]string{"attach", "not-a-pid"})
	require.ErrorContains(t, root.Execute(), "invalid process ID")
}

func TestLaunchConfigFromFlags(t *testing.T) {
	t.Parallel()

	flags := &debugFlags{
		gdbPath:                "/usr/bin/gdb-multiarch",
		gdbArgs:                []string{"-ex", "set pagination off"},
		env:                    []string{"TERM=dumb"},
		envFiles:               []string{"debug.env"},
		commandTimeout:         0,
		handshakeTimeout:       time.Second,
		failOnTransportFailure: true,
	}

	config := flags.launchConfig()
	require.Equal(t, "/usr/bin/gdb-multiarch", config.GDBPath)
	require.Equal(t, []string{"-ex", "set pagination off"}, config.GDBArgs)
	require.Equal(t, []string{"TERM=dumb"}, config.Env)
	require.Equal(t, []string{"debug.env"}, config.EnvFiles)
	require.Equal(t, time.Second, config.HandshakeTimeout)
	require.Negative(t, config.Session.CommandTimeout)
	require.Equal(t, mi.FailOutstanding, config.Session.TransportFailurePolicy)

	flags.commandTimeout = 3 * time.Second
	flags.failOnTransportFailure = false
	config = flags.launchConfig()
	require.Equal(t, 3*time.Second, config.Session.CommandTimeout)
	require.Equal(t, mi.LogAndContinue, config.Session.TransportFailurePolicy)
}
