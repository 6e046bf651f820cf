// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package logger

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestStringToLevel(t *testing.T) {
	t.Parallel()

	type testcase struct {
		value    string
		expected zapcore.Level
		valid    bool
	}

	testcases := []testcase{
		{"debug", zapcore.DebugLevel, true},
		{"INFO", zapcore.InfoLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"1", zapcore.Level(-1), true},
		{"4", zapcore.Level(-4), true},
		{"0", zapcore.WarnLevel, false},
		{"-3", zapcore.WarnLevel, false},
		{"chatty", zapcore.WarnLevel, false},
	}

	for _, tc := range testcases {
		level, err := StringToLevel(tc.value, zapcore.WarnLevel)
		if tc.valid {
			require.NoError(t, err, tc.value)
		} else {
			require.Error(t, err, tc.value)
		}
		require.Equal(t, tc.expected, level, tc.value)
	}
}

func TestLevelFlagSetsLoggerLevel(t *testing.T) {
	t.Parallel()

	log := New("level-flag-test")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	log.AddLevelFlag(fs)

	require.NoError(t, fs.Parse([]string{"-v=2"}))
	require.Equal(t, zapcore.Level(-2), log.atomicLevel.Level())

	flagVal, found := GetLevelFlagValue(fs)
	require.True(t, found)
	require.Equal(t, "2", flagVal.String())

	require.Error(t, fs.Parse([]string{"-v=loud"}))
}
