// Package build holds build-time information about the pincers binary.
package build

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the semantic version of pincers.
const Version = "0.3.0"

// VersionDetails returns the version together with the commit, Go version
// and platform it was built with.
func VersionDetails() map[string]string {
	details := map[string]string{
		"version":    "v" + Version,
		"go_version": runtime.Version(),
		"go_os":      runtime.GOOS,
		"go_arch":    runtime.GOARCH,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision, modified string
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				revision = s.Value
				if len(revision) > 10 {
					revision = revision[:10]
				}
			case "vcs.modified":
				if s.Value == "true" {
					modified = "-dirty"
				}
			}
		}
		if revision != "" {
			details["commit"] = revision + modified
		}
	}
	return details
}

// FullVersion renders VersionDetails on one line.
func FullVersion() string {
	d := VersionDetails()
	if commit, ok := d["commit"]; ok {
		return fmt.Sprintf("%s (commit/%s, %s, %s/%s)", d["version"], commit, d["go_version"], d["go_os"], d["go_arch"])
	}
	return fmt.Sprintf("%s (%s, %s/%s)", d["version"], d["go_version"], d["go_os"], d["go_arch"])
}
