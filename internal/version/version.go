/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version exposes build metadata.
package version

import "runtime/debug"

// Version is the current version of weatherslots.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/weatherslots/internal/version.Version=X.Y.Z
var Version = "0.3.0"

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Revision  string `json:"revision,omitempty"`
}

// Current returns the build info of the running binary.
func Current() Info {
	info := Info{Version: Version}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			info.Revision = s.Value
		}
	}
	return info
}
