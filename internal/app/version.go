// Package app turns a parsed configuration into a running mode. It owns
// the dispatch between one-shot calculation, server, REPL and calibration
// runs, along with process-level concerns such as exit codes and build
// identity.
package app

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"slices"
)

// Build identity, normally injected at link time:
//
//	go build -ldflags "-X github.com/fermatlab/gauss/internal/app.Version=v1.2.3 -X github.com/fermatlab/gauss/internal/app.Commit=abc123"
//
// Binaries built without the flags (plain go install) fall back to the
// module build info the toolchain stamps into the binary.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func init() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "unknown" && len(s.Value) >= 12 {
				Commit = s.Value[:12]
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = s.Value
			}
		}
	}
}

// HasVersionFlag reports whether args carries a version flag in any
// position, so "gauss --server --version" still prints the version.
func HasVersionFlag(args []string) bool {
	return slices.ContainsFunc(args, func(arg string) bool {
		return arg == "--version" || arg == "-version" || arg == "-V"
	})
}

// PrintVersion writes the full build identity, including the Go toolchain
// and target platform.
func PrintVersion(out io.Writer) {
	v := VersionInfo()
	fmt.Fprintf(out, `gauss %s
  Commit:     %s
  Built:      %s
  Go version: %s
  OS/Arch:    %s/%s
`, v.Version, v.Commit, v.Date, v.Go, v.OS, v.Arch)
}

// BuildInfo is the machine-readable form of the build identity. The JSON
// field names are stable; scripts parse them.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"build_date"`
	Go      string `json:"go_version"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

// VersionInfo returns the build identity as a struct.
func VersionInfo() BuildInfo {
	return BuildInfo{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
}
