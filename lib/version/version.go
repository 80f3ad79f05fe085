// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags.
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// Info returns "<version> (<commit>[-dirty], <build time>)".
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, commit(), BuildTime)
}

// Full adds the Go version and platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// commit falls back to the VCS stamp of `go build` when no commit was
// injected.
func commit() string {
	revision, dirty := GitCommit, GitDirty == "true"
	if revision == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs.revision":
					revision = setting.Value
					if len(revision) > 12 {
						revision = revision[:12]
					}
				case "vcs.modified":
					dirty = setting.Value == "true"
				}
			}
		}
	}
	if dirty {
		return revision + "-dirty"
	}
	return revision
}
