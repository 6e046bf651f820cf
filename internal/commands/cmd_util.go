// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package commands

import (
	"os"
	"runtime"

	"github.com/eclipse-cdt/cdt-sub128/pkg/logger"
)

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

func WithNewline(b []byte) []byte {
	if IsWindows() {
		b = append(b, '\r')
	}
	b = append(b, '\n')
	return b
}

// ErrorExit reports the error on stderr, flushes the log and exits with the given code.
func ErrorExit(log *logger.Logger, err error, code int) {
	log.Error(err, "Command failed")
	os.Stderr.Write(WithNewline([]byte(err.Error())))
	log.Flush()
	os.Exit(code)
}
