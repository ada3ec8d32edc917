// Package buildinfo reports the version a binary was built from.
package buildinfo

import (
	"fmt"
	"io"
	"runtime/debug"
)

// Set at build time via -ldflags "-X ...".
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

// GetVersion prefers ldflags, then module build info, then "(devel)".
func GetVersion() string {
	if Version != "" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "(devel)"
}

func GetCommit() string {
	if Commit != "" {
		return Commit
	}
	if v := setting("vcs.revision"); v != "" {
		if len(v) > 7 {
			return v[:7]
		}
		return v
	}
	return "N/A"
}

func GetDate() string {
	if Date != "" {
		return Date
	}
	if v := setting("vcs.time"); v != "" {
		return v
	}
	return "N/A"
}

func setting(key string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// PrintBuildData writes the version block shown at startup.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", GetVersion())
	fmt.Fprintf(w, "Build date: %s\n", GetDate())
	fmt.Fprintf(w, "Build commit: %s\n", GetCommit())
}
