// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyCLI(t *testing.T) {
	t.Parallel()

	type testcase struct {
		input       string
		category    CLICategory
		verb        string
		runningType RunningType
	}

	testcases := []testcase{
		{"n", CLIStepping, "next", RunningNext},
		{"next", CLIStepping, "next", RunningNext},
		{"next 3", CLIStepping, "next", RunningNext},
		{"nex", CLIStepping, "next", RunningNext},
		{"ni", CLIStepping, "nexti", RunningNextInstruction},
		{"nexti", CLIStepping, "nexti", RunningNextInstruction},
		{"s", CLIStepping, "step", RunningStep},
		{"ste", CLIStepping, "step", RunningStep},
		{"si", CLIStepping, "stepi", RunningStepInstruction},
		{"u", CLIStepping, "until", RunningUntil},
		{"unt 12", CLIStepping, "until", RunningUntil},
		{"fin", CLIStepping, "finish", RunningFinish},
		{"c", CLIStepping, "continue", RunningContinue},
		{"cont", CLIStepping, "continue", RunningContinue},
		{"fg", CLIStepping, "continue", RunningContinue},
		{"r", CLIStepping, "run", RunningRun},
		{"ru", CLIStepping, "run", RunningRun},
		{"run --verbose", CLIStepping, "run", RunningRun},
		{"sig SIGUSR1", CLIStepping, "signal", RunningSignal},
		{"jump 42", CLIStepping, "jump", RunningJump},
		{"ju 42", CLIStepping, "jump", RunningJump},

		{"b main", CLIBreakpointSet, "break", RunningNone},
		{"brea main", CLIBreakpointSet, "break", RunningNone},
		{"break a.c:12", CLIBreakpointSet, "break", RunningNone},
		{"tb main", CLIBreakpointSet, "tbreak", RunningNone},
		{"hbreak main", CLIBreakpointSet, "hbreak", RunningNone},
		{"rbreak ^foo", CLIBreakpointSet, "rbreak", RunningNone},

		{"watch x", CLIWatchpointSet, "watch", RunningNone},
		{"rw x", CLIWatchpointSet, "rwatch", RunningNone},
		{"awatch x", CLIWatchpointSet, "awatch", RunningNone},

		{"enable", CLIBreakpointMutate, "enable", RunningNone},
		{"en", CLIBreakpointMutate, "enable", RunningNone},
		{"dis 2", CLIBreakpointMutate, "disable", RunningNone},
		{"disable 2", CLIBreakpointMutate, "disable", RunningNone},
		{"ignore 1 5", CLIBreakpointMutate, "ignore", RunningNone},
		{"cond 1 x > 2", CLIBreakpointMutate, "condition", RunningNone},

		{"del 3", CLIBreakpointDelete, "delete", RunningNone},
		{"d 3", CLIBreakpointDelete, "delete", RunningNone},
		{"clear 3", CLIBreakpointDelete, "clear", RunningNone},

		{"handle SIGPIPE nostop", CLISignalMapping, "handle", RunningNone},
		{"detach", CLIDetach, "detach", RunningNone},
	}

	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()

			class := ClassifyCLI(tc.input)
			require.Equal(t, tc.category, class.Category)
			require.Equal(t, tc.verb, class.Verb)
			require.Equal(t, tc.runningType, class.RunningType)
		})
	}
}

func TestClassifyCLIOrdinary(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"foobar",
		"",
		"   ",
		"br main", // shorter than the minimal abbreviation of "break"
		"ne",
		"st",
		"co",
		"info breakpoints",
		"print x",
		"-exec-next",
		"-break-insert main",
		"-interpreter-exec console \"print x\"",
	}

	for _, input := range inputs {
		class := ClassifyCLI(input)
		require.Equal(t, CLIOrdinary, class.Category, "input %q", input)
		require.Empty(t, class.Verb, "input %q", input)
		require.Equal(t, RunningNone, class.RunningType, "input %q", input)
	}
}

func TestClassifyCLIArgs(t *testing.T) {
	t.Parallel()

	class := ClassifyCLI("  cond 1   x > 2 ")
	require.Equal(t, "condition", class.Verb)
	require.Equal(t, "1   x > 2", class.Args)
}

func TestClassifyConsoleCommand(t *testing.T) {
	t.Parallel()

	cmd := NewConsoleCommand("next")
	require.Equal(t, `-interpreter-exec console next`, cmd.Operation())
	require.Equal(t, CLIStepping, cmd.Classification().Category)

	cmd = NewConsoleCommand("b a.c:3")
	require.Equal(t, `-interpreter-exec console "b a.c:3"`, cmd.Operation())
	class := cmd.Classification()
	require.Equal(t, CLIBreakpointSet, class.Category)
	require.Equal(t, "a.c:3", class.Args)
}

func TestExecRunningType(t *testing.T) {
	t.Parallel()

	rt, isExec := execRunningType("-exec-step --reverse")
	require.True(t, isExec)
	require.Equal(t, RunningStep, rt)

	rt, isExec = execRunningType("-exec-continue --all")
	require.True(t, isExec)
	require.Equal(t, RunningContinue, rt)

	_, isExec = execRunningType("-exec-interrupt")
	require.False(t, isExec)

	_, isExec = execRunningType("next")
	require.False(t, isExec)
}

func TestCLICategoryString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "breakpoint-delete", CLIBreakpointDelete.String())
	require.Equal(t, "ordinary", CLIOrdinary.String())
	require.Equal(t, "stepping", CLIStepping.String())
}
