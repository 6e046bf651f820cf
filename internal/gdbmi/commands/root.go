// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cmds "github.com/eclipse-cdt/cdt-sub128/internal/commands"
	"github.com/eclipse-cdt/cdt-sub128/internal/mi"
	"github.com/eclipse-cdt/cdt-sub128/pkg/logger"
)

type debugFlags struct {
	gdbPath                string
	gdbArgs                []string
	dir                    string
	env                    []string
	envFiles               []string
	commandTimeout         time.Duration
	handshakeTimeout       time.Duration
	dapEvents              bool
	failOnTransportFailure bool
}

func NewRootCmd(log *logger.Logger) (*cobra.Command, error) {
	flags := &debugFlags{}

	rootCmd := &cobra.Command{
		Use:   "gdbmi",
		Short: "Drives GDB through its machine interface",
		Long: `gdbmi starts GDB with the MI interpreter and forwards commands read from stdin to it.

	Lines starting with '-' are sent as MI commands, everything else is run as a GDB console command.
	The inferior's state changes are printed as they happen, either as MI text or as
	Debug Adapter Protocol events (--dap-events).`,
		SilenceErrors:    true,
		SilenceUsage:     true,
		PersistentPreRun: cmds.LogVersion(log.Logger, "Starting gdbmi"),
	}

	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.gdbPath, "gdb", "", fmt.Sprintf("Path to the GDB executable. Defaults to $%s, then %q.", mi.GDBPathEnvVar, mi.DefaultGDBPath))
	pf.StringArrayVar(&flags.gdbArgs, "gdb-arg", nil, "Extra argument passed to GDB. Can be repeated.")
	pf.StringVar(&flags.dir, "cwd", "", "Working directory of GDB.")
	pf.StringArrayVarP(&flags.env, "env", "e", nil, "Environment variable (NAME=value) for GDB and the program. Can be repeated.")
	pf.StringArrayVar(&flags.envFiles, "env-file", nil, "Read environment variables from a .env file. Can be repeated; --env wins over files.")
	pf.DurationVar(&flags.commandTimeout, "timeout", mi.DefaultCommandTimeout, "How long to wait for GDB to answer a command. Zero or negative waits forever.")
	pf.DurationVar(&flags.handshakeTimeout, "handshake-timeout", mi.DefaultHandshakeTimeout, "How long to wait for GDB to start responding.")
	pf.BoolVar(&flags.dapEvents, "dap-events", false, "Print events as Debug Adapter Protocol messages instead of MI text.")
	pf.BoolVar(&flags.failOnTransportFailure, "fail-on-transport-error", false, "Stop the session when writing to GDB fails instead of letting the command time out.")
	log.AddLevelFlag(pf)

	var err error
	var cmd *cobra.Command

	if cmd, err = NewRunCommand(log, flags); cmd != nil {
		rootCmd.AddCommand(cmd)
	} else {
		return nil, fmt.Errorf("could not set up 'run' command: %w", err)
	}

	if cmd, err = NewAttachCommand(log, flags); cmd != nil {
		rootCmd.AddCommand(cmd)
	} else {
		return nil, fmt.Errorf("could not set up 'attach' command: %w", err)
	}

	if cmd, err = NewConnectCommand(log, flags); cmd != nil {
		rootCmd.AddCommand(cmd)
	} else {
		return nil, fmt.Errorf("could not set up 'connect' command: %w", err)
	}

	if cmd, err = cmds.NewVersionCommand(log.Logger); cmd != nil {
		rootCmd.AddCommand(cmd)
	} else {
		return nil, fmt.Errorf("could not set up 'version' command: %w", err)
	}

	return rootCmd, nil
}

func (f *debugFlags) launchConfig() mi.LaunchConfig {
	commandTimeout := f.commandTimeout
	if commandTimeout == 0 {
		commandTimeout = -1
	}

	policy := mi.LogAndContinue
	if f.failOnTransportFailure {
		policy = mi.FailOutstanding
	}

	return mi.LaunchConfig{
		GDBPath:          f.gdbPath,
		GDBArgs:          f.gdbArgs,
		Dir:              f.dir,
		Env:              f.env,
		EnvFiles:         f.envFiles,
		HandshakeTimeout: f.handshakeTimeout,
		Session: mi.SessionConfig{
			CommandTimeout:         commandTimeout,
			TransportFailurePolicy: policy,
		},
	}
}
