// Package version reports the jcheck build's version and provenance.
package version

import (
	"runtime"
	"runtime/debug"
)

// Populated via -ldflags at release build time.
var (
	Version   string
	Branch    string
	BuildUser string
	BuildDate string
)

var (
	Revision  = vcsRevision()
	GoVersion = runtime.Version()
	GoOS      = runtime.GOOS
	GoArch    = runtime.GOARCH
)

// GetVersion returns the release version when set, falling back to the VCS
// revision stamped into the binary.
func GetVersion() string {
	if Version != "" {
		return Version
	}

	return Revision
}

const shortRevLen = 7

func vcsRevision() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	rev := "unknown"
	dirty := false

	for _, s := range buildInfo.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
			if len(rev) > shortRevLen {
				rev = rev[:shortRevLen]
			}

		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if dirty {
		return rev + "-dirty"
	}

	return rev
}
