// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eclipse-cdt/cdt-sub128/pkg/logger"
)

func NewRunCommand(log *logger.Logger, flags *debugFlags) (*cobra.Command, error) {
	runCmd := &cobra.Command{
		Use:   "run PROGRAM [-- ARGS...]",
		Short: "Starts GDB on a program",
		Long: `Starts GDB on a program. The program is not started until a 'run' or 'start' command is entered.

	Arguments after '--' are passed to the program.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := flags.launchConfig()
			config.Program = args[0]
			config.ProgramArgs = args[1:]
			return debug(cmd, log, flags, config)
		},
	}

	return runCmd, nil
}

func NewAttachCommand(log *logger.Logger, flags *debugFlags) (*cobra.Command, error) {
	attachCmd := &cobra.Command{
		Use:   "attach PID [PROGRAM]",
		Short: "Starts GDB and attaches it to a running process",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil || pid <= 0 {
				return fmt.Errorf("invalid process ID %q", args[0])
			}

			config := flags.launchConfig()
			config.AttachPID = pid
			if len(args) > 1 {
				config.Program = args[1]
			}
			return debug(cmd, log, flags, config)
		},
	}

	return attachCmd, nil
}

func NewConnectCommand(log *logger.Logger, flags *debugFlags) (*cobra.Command, error) {
	connectCmd := &cobra.Command{
		Use:   "connect ADDRESS [PROGRAM]",
		Short: "Starts GDB and connects it to a gdbserver",
		Long: `Starts GDB and connects it to a gdbserver, e.g. 'gdbmi connect localhost:2345 ./a.out'.

	The program, if given, is used to load symbols.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := flags.launchConfig()
			config.RemoteTarget = args[0]
			if len(args) > 1 {
				config.Program = args[1]
			}
			return debug(cmd, log, flags, config)
		},
	}

	return connectCmd, nil
}
