// Package misc provides program identification helpers shared by all
// subsystems. Values are either baked in at link time or recovered from the
// build information embedded by the Go toolchain.
package misc

import (
	"runtime/debug"
)

const appName = "forumfmt"

// set by the linker in release builds
var (
	version = ""
	gitHash = ""
)

// GetAppName returns short program name used for logs, temporary files and
// report naming.
func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	if len(version) != 0 {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && len(bi.Main.Version) != 0 {
		return bi.Main.Version
	}
	return "unknown"
}

// GetGitHash returns VCS revision the program was built from.
func GetGitHash() string {
	if len(gitHash) != 0 {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
