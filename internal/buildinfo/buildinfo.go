// Package buildinfo carries version data set at link time:
//
//	go build -ldflags "-X tourplan/internal/buildinfo.Version=v1.2.0 -X tourplan/internal/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import (
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

// Info returns the build fields for /debug/vars. Commit falls back to the VCS
// revision embedded by the Go toolchain.
func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  commit(),
		"builtAt": BuiltAt,
		"go":      runtime.Version(),
	}
}

// String is the one-line form printed by "tourplan version".
func String() string {
	s := "tourplan " + Version
	if c := commit(); c != "" {
		s += " (" + c + ")"
	}
	if BuiltAt != "" {
		s += " built " + BuiltAt
	}
	return s + " " + runtime.Version()
}

func commit() string {
	if Commit != "" {
		return Commit
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}
