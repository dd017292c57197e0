// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package version

import "testing"

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "v1.0.0",
		GitCommit: "abc1234",
		BuildTime: "2025-01-30T12:00:00Z",
	}

	want := "v1.0.0 (commit abc1234, built 2025-01-30T12:00:00Z)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestGet(t *testing.T) {
	info := Get()

	if info.Version != version {
		t.Errorf("Version = %q, want %q", info.Version, version)
	}
	if info.GitCommit == "" {
		t.Error("GitCommit should never be empty")
	}
	if info.BuildTime == "" {
		t.Error("BuildTime should never be empty")
	}
}

func TestGetWithLdflags(t *testing.T) {
	old := [3]string{version, gitCommit, buildTime}
	t.Cleanup(func() { version, gitCommit, buildTime = old[0], old[1], old[2] })

	version, gitCommit, buildTime = "v2.0.0", "def5678", "2026-01-01T00:00:00Z"
	info := Get()
	if info.Version != "v2.0.0" || info.GitCommit != "def5678" || info.BuildTime != "2026-01-01T00:00:00Z" {
		t.Errorf("Get() = %+v", info)
	}
}
