// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/eclipse-cdt/cdt-sub128/internal/dapview"
	"github.com/eclipse-cdt/cdt-sub128/internal/mi"
	"github.com/eclipse-cdt/cdt-sub128/pkg/logger"
)

// debugSession is the part of the session the console drives.
type debugSession interface {
	Post(ctx context.Context, cmd *mi.Command) mi.Outcome
	Interrupt(ctx context.Context) error
	Destroy(ctx context.Context) error
	Detach(ctx context.Context) error
}

var _ debugSession = (*mi.Session)(nil)

type inputAction int

const (
	actionNone inputAction = iota
	actionQuit
	actionInterrupt
	actionKill
	actionDetach
	actionMI
	actionConsole
)

// parseInput decides what to do with a line typed by the user.
func parseInput(line string) (inputAction, string) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return actionNone, ""
	case line == "quit" || line == "q" || line == "exit":
		return actionQuit, ""
	case line == "interrupt" || line == "-exec-interrupt":
		return actionInterrupt, ""
	case line == "kill" || line == "k":
		return actionKill, ""
	case line == "detach" || line == "-target-detach":
		return actionDetach, ""
	case strings.HasPrefix(line, "-"):
		return actionMI, line
	default:
		return actionConsole, line
	}
}

// console forwards user input to the session and reports the results.
type console struct {
	session debugSession
	out     io.Writer
	errOut  io.Writer
	log     logr.Logger
}

// execute runs one line of input. It returns true when the user asked to quit.
func (c *console) execute(ctx context.Context, line string) bool {
	action, text := parseInput(line)

	var err error
	switch action {
	case actionNone:
		return false
	case actionQuit:
		return true
	case actionInterrupt:
		err = c.session.Interrupt(ctx)
	case actionKill:
		err = c.session.Destroy(ctx)
	case actionDetach:
		err = c.session.Detach(ctx)
	case actionMI:
		err = c.report(c.session.Post(ctx, mi.NewCommand(text)))
	case actionConsole:
		err = c.report(c.session.Post(ctx, mi.NewConsoleCommand(text)))
	}

	if err != nil {
		c.log.V(1).Info("Command failed", "input", line, "error", err.Error())
		fmt.Fprintf(c.errOut, "error: %s\n", err.Error())
	}
	return false
}

func (c *console) report(o mi.Outcome) error {
	if err := o.Err(); err != nil {
		return err
	}
	if o.Output.Result != nil && len(o.Output.Result.Results) > 0 {
		fmt.Fprintln(c.out, o.Output.Result.Text())
	}
	return nil
}

// run reads lines until the input ends, the user quits, or ctx is done.
func (c *console) run(ctx context.Context, input io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if c.execute(ctx, line) {
				return nil
			}
		}
	}
}

func formatEvent(e mi.Event) string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(string(e.Kind))
	sb.WriteString("]")
	if text := e.Text(); text != "" {
		sb.WriteString(" ")
		sb.WriteString(text)
	}
	for _, sr := range e.Context {
		sb.WriteString("\n    ")
		sb.WriteString(strings.TrimRight(sr.Content, "\n"))
	}
	return sb.String()
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// debug launches the debugger and runs the console until the user quits or the debugger exits.
func debug(cmd *cobra.Command, log *logger.Logger, flags *debugFlags, config mi.LaunchConfig) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	debugLog := log.Logger.WithName("debug")
	stdout := &lockedWriter{w: cmd.OutOrStdout()}
	stderr := &lockedWriter{w: cmd.ErrOrStderr()}

	out := io.Writer(stdout)
	if flags.dapEvents {
		em := dapview.NewEmitter(stdout, debugLog)
		config.Session.Console = em.Output("console")
		config.Session.Target = em.Output("stdout")
		config.Session.Log = em.Output("stderr")
		config.Session.Listeners = append(config.Session.Listeners, em)
		out = em.Output("console")
	} else {
		config.Session.Console = stdout
		config.Session.Target = stdout
		config.Session.Log = stderr
		config.Session.Listeners = append(config.Session.Listeners, mi.ListenerFunc(func(e mi.Event) {
			fmt.Fprintln(stdout, formatEvent(e))
		}))
	}
	config.Session.Logger = log.Logger.WithName("session")

	p, launchErr := mi.Launch(ctx, config)
	if launchErr != nil {
		return launchErr
	}

	go func() {
		select {
		case <-p.Done():
			debugLog.Info("Debugger exited")
			cancel()
		case <-ctx.Done():
		}
	}()

	stopSignals := handleSignals(ctx, cancel, p.Session(), debugLog)
	defer stopSignals()

	c := &console{
		session: p.Session(),
		out:     out,
		errOut:  stderr,
		log:     debugLog,
	}
	runErr := c.run(ctx, cmd.InOrStdin())

	closeErr := p.Close()
	if errors.Is(closeErr, mi.ErrSessionClosed) {
		closeErr = nil
	}
	return errors.Join(runErr, closeErr)
}

// handleSignals interrupts a running inferior on SIGINT; SIGINT while the inferior is suspended,
// or SIGTERM, ends the console.
func handleSignals(ctx context.Context, cancel context.CancelFunc, s *mi.Session, log logr.Logger) func() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-signals:
				if sig != os.Interrupt || !s.Inferior().IsRunning() {
					log.V(1).Info("Stopping", "signal", sig.String())
					cancel()
					return
				}
				if err := s.Interrupt(ctx); err != nil {
					log.Error(err, "Could not interrupt the inferior")
				}
			}
		}
	}()

	return func() {
		signal.Stop(signals)
	}
}
