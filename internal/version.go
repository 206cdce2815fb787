// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package internal

import (
	"fmt"
	"runtime/debug"
)

// simVersion is the tsbsim build tag; overridden at build time with
// -ldflags "-X .../internal.simVersion=...".
var simVersion string = "v0.1.0"

// commitRevision is filled in from the module's embedded VCS info when
// available, falling back to "unknown" for a build without one (e.g. `go
// build` from a tarball rather than a git checkout).
var commitRevision = commitFromBuildInfo()

func commitFromBuildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			if len(setting.Value) > 12 {
				return setting.Value[:12]
			}
			return setting.Value
		}
	}
	return "unknown"
}

// GetVersion returns the tsbsim version and, when known, the VCS revision
// it was built from.
func GetVersion() string {
	if commitRevision == "unknown" {
		return simVersion
	}
	return fmt.Sprintf("%s (%s)", simVersion, commitRevision)
}
