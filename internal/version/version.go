// Package version identifies the lcr binary.
package version

import (
	"runtime/debug"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Version is the release of the reducer and its rewrite rules.
const Version = "0.1.0"

// Set with -ldflags "-X github.com/standardbeagle/lcr/internal/version.GitCommit=...".
var (
	GitCommit = ""
	BuildDate = "development"
)

// Info is the short version reported to MCP clients.
func Info() string {
	return Version
}

// FullInfo is the line printed by "lcr version".
func FullInfo() string {
	return "lcr " + Version + " (commit: " + Commit() + ", built: " + BuildDate + ")"
}

// Commit is the linked commit, else the VCS revision stamped by the Go
// toolchain, else "unknown".
func Commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	if rev := setting("vcs.revision"); rev != "" {
		if len(rev) > 12 {
			rev = rev[:12]
		}
		if setting("vcs.modified") == "true" {
			rev += "-dirty"
		}
		return rev
	}
	return "unknown"
}

var (
	buildID     string
	buildIDOnce sync.Once
)

// BuildID fingerprints the running binary. Two development builds share
// Version, so clients comparing reductions from different lcr processes
// (the version command, the MCP info tool) need this to know whether the
// same rewrite rules produced them. It covers the toolchain, the module and
// its dependency versions, and the VCS state.
func BuildID() string {
	buildIDOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			buildID = Version + "-" + Commit()
			return
		}
		buildID = fingerprint(info)
	})
	return buildID
}

func fingerprint(info *debug.BuildInfo) string {
	d := xxhash.New()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = d.WriteString(p)
			_, _ = d.Write([]byte{0})
		}
	}
	write(info.GoVersion, info.Main.Path, info.Main.Version, Version)
	for _, dep := range info.Deps {
		write(dep.Path, dep.Version)
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision", "vcs.modified", "vcs.time":
			write(s.Key, s.Value)
		}
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

func setting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}
