// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package testutil

import (
	"flag"
	"testing"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"

	"github.com/eclipse-cdt/cdt-sub128/pkg/logger"
)

// NewLogForTesting returns a logger that only reports errors, unless the test binary runs with -v,
// in which case it includes every MI line exchanged with the debugger.
func NewLogForTesting(name string) logr.Logger {
	log := logger.New(name)
	log.SetLevel(zapcore.ErrorLevel)
	if !flag.Parsed() {
		flag.Parse() // Needed to test if verbose flag was present.
	}
	if testing.Verbose() {
		log.SetLevel(zapcore.Level(-1))
	}
	return log.Logger.WithValues("test", true)
}
