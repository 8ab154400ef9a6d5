// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version describes the running newsdesk build.
package version

import "fmt"

// Info identifies a build. Fields are injected via ldflags; empty fields
// are reported as "dev" or "unknown".
type Info struct {
	Version   string // git tag, e.g. "v1.2.3"
	GitCommit string // short commit hash
	BuildTime string // RFC3339
}

// String formats the build as printed by `newsdesk -version` and
// `newsctl --version`.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)",
		orDefault(i.Version, "dev"), orDefault(i.GitCommit, "unknown"), orDefault(i.BuildTime, "unknown"))
}

// Short returns the version alone, as reported by the health endpoint.
func (i Info) Short() string {
	return orDefault(i.Version, "dev")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
