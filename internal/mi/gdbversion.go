// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const gdbBannerPrefix = "GNU gdb"

// MinimumGDBVersion is the oldest debugger version with the MI features the session relies on
// (tokens on async records, *running notifications).
var MinimumGDBVersion = semver.MustParse("7.0")

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// ParseGDBVersion extracts the version from the first line of the debugger banner,
// e.g. "GNU gdb (Ubuntu 12.1-0ubuntu1~22.04) 12.1" or "GNU gdb (GDB) 7.6.1-ubuntu".
// Distributions put their own version numbers in parentheses, so the last match wins.
func ParseGDBVersion(banner string) (*semver.Version, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(banner), "\n")
	if !strings.HasPrefix(line, gdbBannerPrefix) {
		return nil, fmt.Errorf("not a GDB banner: %q", line)
	}

	matches := versionPattern.FindAllString(line, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no version number in GDB banner: %q", line)
	}

	v, err := semver.NewVersion(matches[len(matches)-1])
	if err != nil {
		return nil, fmt.Errorf("invalid GDB version in banner %q: %w", line, err)
	}
	return v, nil
}
