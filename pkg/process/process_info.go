// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package process

import (
	"errors"
	"fmt"
	"math"

	ps "github.com/shirou/gopsutil/v4/process"
)

var ErrorProcessNotFound = errors.New("process does not exist")

// Name returns the executable name of a running process.
// Returns an error wrapping ErrorProcessNotFound if there is no such process.
func Name(pid int) (string, error) {
	if pid <= 0 || pid > math.MaxInt32 {
		return "", fmt.Errorf("invalid process ID %d: %w", pid, ErrorProcessNotFound)
	}

	proc, procErr := ps.NewProcess(int32(pid))
	if procErr != nil {
		if errors.Is(procErr, ps.ErrorProcessNotRunning) {
			return "", fmt.Errorf("process with pid %d does not exist: %w", pid, ErrorProcessNotFound)
		}
		return "", procErr
	}

	return proc.Name()
}
