// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-cdt/cdt-sub128/pkg/process"
	"github.com/eclipse-cdt/cdt-sub128/pkg/testutil"
)

func TestLaunchConfigValidation(t *testing.T) {
	t.Parallel()

	type testcase struct {
		description string
		config      LaunchConfig
		valid       bool
	}

	testcases := []testcase{
		{"empty", LaunchConfig{}, true},
		{"program", LaunchConfig{Program: "/tmp/a.out", ProgramArgs: []string{"-x"}}, true},
		{"attach", LaunchConfig{AttachPID: 42}, true},
		{"remote", LaunchConfig{RemoteTarget: "localhost:2345"}, true},
		{"negative pid", LaunchConfig{AttachPID: -1}, false},
		{"attach and remote", LaunchConfig{AttachPID: 42, RemoteTarget: "localhost:2345"}, false},
		{"arguments without program", LaunchConfig{ProgramArgs: []string{"-x"}}, false},
	}

	for _, tc := range testcases {
		err := tc.config.validate()
		if tc.valid {
			require.NoError(t, err, tc.description)
		} else {
			require.ErrorIs(t, err, ErrInvalidLaunchConfig, tc.description)
		}
	}
}

func TestLaunchConfigCommandLine(t *testing.T) {
	t.Parallel()

	config := LaunchConfig{}
	require.Equal(t, []string{"--interpreter=mi2", "-q", "-nx"}, config.gdbCommandLine())

	config = LaunchConfig{GDBArgs: []string{"-ex", "set pagination off"}, Program: "/tmp/a.out"}
	require.Equal(t, []string{"--interpreter=mi2", "-q", "-nx", "-ex", "set pagination off", "/tmp/a.out"}, config.gdbCommandLine())

	config = LaunchConfig{Program: "/tmp/a.out", ProgramArgs: []string{"one", "two words"}}
	require.Equal(t, []string{"--interpreter=mi2", "-q", "-nx", "--args", "/tmp/a.out", "one", "two words"}, config.gdbCommandLine())
}

func TestLaunchConfigEnvironment(t *testing.T) {
	t.Parallel()

	envFile := filepath.Join(t.TempDir(), "debug.env")
	require.NoError(t, os.WriteFile(envFile, []byte("# inferior settings\nLD_LIBRARY_PATH=/opt/lib\nMODE=file\n"), 0600))

	config := LaunchConfig{
		Env:      []string{"MODE=explicit"},
		EnvFiles: []string{envFile},
	}
	env, err := config.environment()
	require.NoError(t, err)

	n := len(env)
	require.Equal(t, []string{"LD_LIBRARY_PATH=/opt/lib", "MODE=file", "MODE=explicit"}, env[n-3:])

	config.EnvFiles = []string{filepath.Join(t.TempDir(), "missing.env")}
	_, err = config.environment()
	require.ErrorIs(t, err, ErrInvalidLaunchConfig)
}

func TestLaunchConfigGDBPath(t *testing.T) {
	t.Setenv(GDBPathEnvVar, "")
	config := LaunchConfig{}
	require.Equal(t, DefaultGDBPath, config.gdbPath())

	t.Setenv(GDBPathEnvVar, "/opt/gdb/bin/gdb")
	require.Equal(t, "/opt/gdb/bin/gdb", config.gdbPath())

	config.GDBPath = "/usr/bin/gdb-multiarch"
	require.Equal(t, "/usr/bin/gdb-multiarch", config.gdbPath())
}

func TestLaunchRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := Launch(context.Background(), LaunchConfig{AttachPID: 1, RemoteTarget: "localhost:1"})
	require.ErrorIs(t, err, ErrInvalidLaunchConfig)
}

func TestLaunchRejectsMissingAttachTarget(t *testing.T) {
	t.Parallel()

	// The PID of an exited child is not in use (barring reuse within the test).
	exited := exec.Command("true")
	if err := exited.Run(); err != nil {
		t.Skip("cannot run 'true' on this system")
	}

	_, err := Launch(context.Background(), LaunchConfig{GDBPath: "/nonexistent/gdb", AttachPID: exited.Process.Pid})
	require.ErrorIs(t, err, ErrInvalidLaunchConfig)
	require.ErrorIs(t, err, process.ErrorProcessNotFound)
}

func TestDebuggerStderrAndLogStreamShareSink(t *testing.T) {
	t.Parallel()

	const lines = 50
	var buf bytes.Buffer
	config := SessionConfig{Log: &buf}
	sink := sharedLogSink(&config)

	tr := newMockTransport()
	_ = startSessionOver(t, tr, config)

	stderr, stderrWriter := io.Pipe()
	copied := make(chan struct{})
	go func() {
		copyStderr(stderr, sink, logr.Discard())
		close(copied)
	}()

	for i := 0; i < lines; i++ {
		tr.Inject(`&"log line\n"`)
		_, writeErr := io.WriteString(stderrWriter, "stderr line\n")
		require.NoError(t, writeErr)
	}
	tr.Respond()
	require.NoError(t, stderrWriter.Close())
	<-copied

	count := func(text string) int {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return strings.Count(buf.String(), text)
	}
	pollUntil(t, func() bool { return count("log line\n") == lines })
	require.Equal(t, lines, count("stderr line\n"))
}

func TestLaunchMissingDebugger(t *testing.T) {
	t.Parallel()

	_, err := Launch(context.Background(), LaunchConfig{GDBPath: "/nonexistent/gdb"})
	require.Error(t, err)
}

func TestLaunchDebugger(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping debugger launch in short mode")
	}
	gdbPath, lookErr := exec.LookPath("gdb")
	if lookErr != nil {
		t.Skip("gdb is not installed")
	}
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	console := testutil.NewBufferWriter()
	p, launchErr := Launch(ctx, LaunchConfig{
		GDBPath: gdbPath,
		Session: SessionConfig{
			Logger:  testutil.NewLogForTesting(t.Name()),
			Console: console,
		},
	})
	require.NoError(t, launchErr)

	s := p.Session()
	require.NotNil(t, s.GDBVersion())
	require.Positive(t, p.PID())

	o := s.Post(ctx, NewCommand("-data-evaluate-expression", "1+2"))
	require.NoError(t, o.Err())
	require.Equal(t, "3", o.Output.Result.String("value"))
	require.Contains(t, console.String(), "GNU gdb")

	o = s.Post(ctx, NewCommand("-no-such-command"))
	require.True(t, o.IsErrorResult())

	require.NoError(t, p.Close())
	select {
	case <-p.Done():
	default:
		require.Fail(t, "debugger process is still running after Close()")
	}
}
