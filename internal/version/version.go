// Package version reports the build version of the wgdyn binaries.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/muurk/wgdyn/internal/protocol"
)

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/wgdyn/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/wgdyn/internal/version.Commit=abc123"
//
// If not set, they are populated from the VCS stamp in the build info, or
// fall back to "dev" with a timestamp.
var (
	// Version is the semantic version of the application
	Version = ""
	// Commit is the git commit hash
	Commit = ""
)

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			fromSettings(info.Settings)
		}
	}

	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromSettings fills Version and Commit from vcs.* build settings.
func fromSettings(settings []debug.BuildSetting) {
	var revision, modified, vcsTime string
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		case "vcs.time":
			vcsTime = s.Value
		}
	}

	if Commit == "" && revision != "" {
		Commit = revision[:min(len(revision), 7)]
		if modified == "true" {
			Commit += "-dirty"
		}
	}

	// Build info carries no tags, so untagged builds are dated by commit.
	if Version == "" && vcsTime != "" {
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Line is the output of the version command for app.
func Line(app string) string {
	return fmt.Sprintf("%s %s (protocol %d, %s)", app, Full(), protocol.Version, runtime.Version())
}
