// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package version

import (
	"bytes"
	"strconv"
	"time"
)

const (
	DevelopmentVersion = "dev"
)

// Set at build time via -ldflags "-X".
var (
	ProductVersion = DevelopmentVersion
	CommitHash     = ""
	BuildTimestamp = ""
)

type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}

	return []byte("\"" + t.Time.Format(time.RFC3339) + "\""), nil
}

// UnmarshalJSON expects a quoted RFC 3339 string or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	parsed, err := time.Parse("\""+time.RFC3339+"\"", string(data))
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

type VersionOutput struct {
	Version           string     `json:"version"`
	CommitHash        string     `json:"commitHash,omitempty"`
	BuildTime         *Timestamp `json:"buildTimestamp,omitempty"`
	MinimumGDBVersion string     `json:"minimumGdbVersion"`
}

// Version reports the build information. minimumGDB is the oldest debugger version the build supports.
func Version(minimumGDB string) VersionOutput {
	var buildTime time.Time
	if BuildTimestamp != "" {
		if seconds, err := strconv.ParseInt(BuildTimestamp, 10, 64); err == nil {
			buildTime = time.Unix(seconds, 0)
		} else if parsed, timeErr := time.Parse(time.RFC3339, BuildTimestamp); timeErr == nil {
			buildTime = parsed
		}
	}

	productVersion := ProductVersion
	if productVersion == "" {
		productVersion = DevelopmentVersion
	}

	return VersionOutput{
		Version:           productVersion,
		CommitHash:        CommitHash,
		BuildTime:         &Timestamp{buildTime},
		MinimumGDBVersion: minimumGDB,
	}
}
