// Package version holds build information injected via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time:
//
//	-ldflags "-X github.com/gotrs-io/gotrs-ldapsync/internal/version.Version=v1.2.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the build information as reported by the version command.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// GetInfo returns the current build information.
func GetInfo() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// Short returns the version alone.
func Short() string {
	return Version
}

// Full renders every field on one line.
func Full() string {
	return fmt.Sprintf("gotrs-ldapsync %s (%s) built %s with %s", Version, GitCommit, BuildDate, runtime.Version())
}
