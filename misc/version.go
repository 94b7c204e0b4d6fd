// Package misc keeps build time information about the program.
package misc

import (
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
)

// Set by linker: -X nscale/misc.version=... -X nscale/misc.githash=...
var (
	version = "dev"
	githash = ""
	appname = ""
)

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns git hash the program was built from, falls back to vcs
// information recorded by the go tool.
func GetGitHash() string {
	if len(githash) > 0 {
		return githash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}

// GetAppName returns program name without extension.
func GetAppName() string {
	if len(appname) > 0 {
		return appname
	}
	return strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
}
