// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-logr/logr"
	"github.com/joho/godotenv"

	"github.com/eclipse-cdt/cdt-sub128/pkg/process"
	"github.com/eclipse-cdt/cdt-sub128/pkg/resiliency"
)

const (
	// GDBPathEnvVar overrides the debugger executable when LaunchConfig.GDBPath is empty.
	GDBPathEnvVar = "GDBMI_GDB_PATH"

	DefaultGDBPath = "gdb"

	// DefaultHandshakeTimeout bounds the wait for the debugger to answer its first command.
	DefaultHandshakeTimeout = 10 * time.Second

	handshakeAttemptTimeout = 2 * time.Second

	// How long Close() waits for the debugger to exit after -gdb-exit before killing it.
	exitWaitTimeout = 3 * time.Second
)

// ErrInvalidLaunchConfig is returned when the launch configuration is inconsistent.
var ErrInvalidLaunchConfig = errors.New("invalid debugger launch configuration")

// LaunchConfig describes how to start the debugger and connect it to the inferior.
type LaunchConfig struct {
	// GDBPath is the debugger executable. Defaults to $GDBMI_GDB_PATH, then "gdb".
	GDBPath string

	// GDBArgs are passed to the debugger before the program.
	GDBArgs []string

	// Program is the executable to debug (optional when attaching or debugging remotely).
	Program string

	// ProgramArgs are the arguments of the inferior.
	ProgramArgs []string

	// AttachPID is the process to attach to. Mutually exclusive with RemoteTarget.
	AttachPID int

	// RemoteTarget is the address of a gdbserver, e.g. "localhost:2345".
	RemoteTarget string

	// Dir is the working directory of the debugger. Defaults to the current directory.
	Dir string

	// Env holds extra "NAME=value" entries appended to the current environment.
	// The inferior inherits the debugger's environment.
	Env []string

	// EnvFiles are .env files read before Env is applied; Env entries win over file entries.
	EnvFiles []string

	// HandshakeTimeout defaults to DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration

	// Session configures the session. Transport, GDBProcessID, Topology and InferiorProcessID are filled in by Launch().
	Session SessionConfig
}

func (c *LaunchConfig) validate() error {
	if c.AttachPID < 0 {
		return fmt.Errorf("%w: invalid process ID %d", ErrInvalidLaunchConfig, c.AttachPID)
	}
	if c.AttachPID > 0 && c.RemoteTarget != "" {
		return fmt.Errorf("%w: cannot attach to a local process and select a remote target at the same time", ErrInvalidLaunchConfig)
	}
	if len(c.ProgramArgs) > 0 && c.Program == "" {
		return fmt.Errorf("%w: program arguments require a program", ErrInvalidLaunchConfig)
	}
	return nil
}

func (c *LaunchConfig) gdbPath() string {
	if c.GDBPath != "" {
		return c.GDBPath
	}
	if fromEnv := os.Getenv(GDBPathEnvVar); fromEnv != "" {
		return fromEnv
	}
	return DefaultGDBPath
}

func (c *LaunchConfig) environment() ([]string, error) {
	env := os.Environ()
	if len(c.EnvFiles) > 0 {
		fromFiles, err := godotenv.Read(c.EnvFiles...)
		if err != nil {
			return nil, fmt.Errorf("%w: could not read environment files %v: %w", ErrInvalidLaunchConfig, c.EnvFiles, err)
		}
		for _, name := range slices.Sorted(maps.Keys(fromFiles)) {
			env = append(env, name+"="+fromFiles[name])
		}
	}
	return append(env, c.Env...), nil
}

func (c *LaunchConfig) gdbCommandLine() []string {
	args := []string{"--interpreter=mi2", "-q", "-nx"}
	args = append(args, c.GDBArgs...)
	switch {
	case c.Program != "" && len(c.ProgramArgs) > 0:
		args = append(args, "--args", c.Program)
		args = append(args, c.ProgramArgs...)
	case c.Program != "":
		args = append(args, c.Program)
	}
	return args
}

// Process is a running debugger together with the session that drives it.
type Process struct {
	session *Session
	cmd     *exec.Cmd
	log     logr.Logger

	done    chan struct{}
	exitErr error
	mu      sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// Launch starts the debugger, waits until it answers -gdb-version,
// and then attaches to the inferior or selects the remote target if the configuration asks for it.
// The debugger is killed when ctx is cancelled.
func Launch(ctx context.Context, config LaunchConfig) (*Process, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	log := config.Session.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	if config.AttachPID > 0 {
		name, lookupErr := process.Name(config.AttachPID)
		if lookupErr != nil {
			return nil, fmt.Errorf("%w: cannot attach: %w", ErrInvalidLaunchConfig, lookupErr)
		}
		log.V(1).Info("Attaching to process", "pid", config.AttachPID, "name", name)
	}

	env, envErr := config.environment()
	if envErr != nil {
		return nil, envErr
	}

	gdbPath := config.gdbPath()
	args := config.gdbCommandLine()

	cmd := exec.CommandContext(ctx, gdbPath, args...)
	cmd.Dir = config.Dir
	cmd.Env = env
	process.DecoupleFromParent(cmd)

	stdin, stdinErr := cmd.StdinPipe()
	if stdinErr != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", stdinErr)
	}

	// Closed by wait() once the process has exited and all of its output has been copied.
	stdout, stdoutWriter := io.Pipe()
	stderr, stderrWriter := io.Pipe()
	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter

	if startErr := cmd.Start(); startErr != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("failed to start debugger %q: %w", gdbPath, startErr)
	}

	log.Info("Launched debugger", "command", gdbPath, "args", args, "pid", cmd.Process.Pid)

	p := &Process{
		cmd:  cmd,
		log:  log,
		done: make(chan struct{}),
	}
	go p.wait(stdoutWriter, stderrWriter)

	sessionConfig := config.Session
	go copyStderr(stderr, sharedLogSink(&sessionConfig), log)
	sessionConfig.Transport = NewStreamTransport(stdout, stdin)
	sessionConfig.GDBProcessID = cmd.Process.Pid
	sessionConfig.Topology = Topology{
		Attached: config.AttachPID > 0,
		Remote:   config.RemoteTarget != "",
	}
	if config.AttachPID > 0 {
		sessionConfig.InferiorProcessID = config.AttachPID
	}

	p.session = NewSession(sessionConfig)
	if startErr := p.session.Start(ctx); startErr != nil {
		return nil, errors.Join(startErr, p.Close())
	}

	if connectErr := p.connect(ctx, config); connectErr != nil {
		return nil, errors.Join(connectErr, p.Close())
	}

	return p, nil
}

func (p *Process) connect(ctx context.Context, config LaunchConfig) error {
	handshakeTimeout := config.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}

	version, handshakeErr := p.handshake(ctx, handshakeTimeout)
	if handshakeErr != nil {
		return fmt.Errorf("debugger did not respond: %w", handshakeErr)
	}

	if version == nil {
		p.log.Info("Could not determine the debugger version")
	} else if version.LessThan(MinimumGDBVersion) {
		p.log.Info("Debugger is older than the oldest supported version; some features may not work",
			"version", version.String(),
			"minimumVersion", MinimumGDBVersion.String())
	} else {
		p.log.V(1).Info("Debugger version", "version", version.String())
	}

	switch {
	case config.AttachPID > 0:
		o := p.session.Post(ctx, NewCommand("-target-attach", strconv.Itoa(config.AttachPID)))
		if err := o.Err(); err != nil {
			return fmt.Errorf("failed to attach to process %d: %w", config.AttachPID, err)
		}

	case config.RemoteTarget != "":
		o := p.session.Post(ctx, NewCommand("-target-select", "remote", config.RemoteTarget))
		if err := o.Err(); err != nil {
			return fmt.Errorf("failed to connect to remote target %s: %w", config.RemoteTarget, err)
		}
	}

	return nil
}

// handshake posts -gdb-version until the debugger answers and returns the version from its banner.
// A nil version means the banner could not be parsed.
func (p *Process) handshake(ctx context.Context, timeout time.Duration) (*semver.Version, error) {
	handshakeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attemptTimeout := min(handshakeAttemptTimeout, timeout)
	b := resiliency.ExponentialBackoff(100*time.Millisecond, time.Second, timeout)

	return resiliency.RetryGet(handshakeCtx, b, func() (*semver.Version, error) {
		o := p.session.PostCommand(handshakeCtx, NewCommand("-gdb-version"), attemptTimeout)
		switch {
		case o.Kind == OutcomeTransportError:
			return nil, resiliency.Permanent(o.Err())
		case !o.OK():
			return nil, o.Err()
		case o.IsErrorResult():
			return nil, resiliency.Permanent(o.Err())
		}

		for _, sr := range o.Output.Streams() {
			if sr.Kind != ConsoleStream {
				continue
			}
			if v, err := ParseGDBVersion(sr.Content); err == nil {
				p.session.gdbVersion.CompareAndSwap(nil, v)
				return v, nil
			}
		}
		return p.session.GDBVersion(), nil
	})
}

func (p *Process) wait(outputs ...*io.PipeWriter) {
	err := p.cmd.Wait()
	for _, w := range outputs {
		w.Close()
	}

	p.mu.Lock()
	p.exitErr = err
	p.mu.Unlock()
	close(p.done)

	if err != nil {
		p.log.V(1).Info("Debugger exited with error", "pid", p.PID(), "error", err.Error())
	} else {
		p.log.V(1).Info("Debugger exited", "pid", p.PID())
	}
}

func (p *Process) Session() *Session {
	return p.session
}

// PID returns the process ID of the debugger.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Done returns a channel that is closed when the debugger process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the debugger process exits and returns its exit error, if any.
func (p *Process) Wait() error {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

// Kill terminates the debugger process immediately.
func (p *Process) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill debugger process %d: %w", p.PID(), err)
	}
	return nil
}

// Close closes the session (which asks the debugger to exit) and waits for the process to exit.
// The process is killed if it does not exit in time.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		var errs []error
		if p.session != nil {
			errs = append(errs, p.session.Close())
		}

		select {
		case <-p.done:
		case <-time.After(exitWaitTimeout):
			p.log.Info("Debugger did not exit; killing it", "pid", p.PID())
			errs = append(errs, p.Kill())
			<-p.done
		}

		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}

// syncWriter serializes writes to a sink shared by several goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (sw *syncWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.w.Write(p)
}

// sharedLogSink replaces the session log sink with one that the stderr copier can write to
// while the session forwards log stream records.
func sharedLogSink(config *SessionConfig) *syncWriter {
	sink := &syncWriter{w: orDiscard(config.Log)}
	config.Log = sink
	return sink
}

// copyStderr forwards the debugger's stderr to the log sink, line by line.
func copyStderr(stderr io.Reader, sink io.Writer, log logr.Logger) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		log.V(1).Info("Debugger stderr", "line", line)
		if _, err := io.WriteString(sink, line+"\n"); err != nil {
			log.V(1).Info("Could not forward debugger stderr", "error", err.Error())
		}
	}
}
