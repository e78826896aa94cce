// Package version exposes build metadata of the docspec binary.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

const (
	// Unknown is used when build metadata is not provided.
	Unknown = "unknown"
	// DevelopmentVersion is the default version in local builds.
	DevelopmentVersion = "dev"
)

var (
	// AppVersion is intended to be overridden at build time:
	// go build -ldflags="-X github.com/nimburion/docspec/pkg/version.AppVersion=v1.2.3"
	AppVersion = DevelopmentVersion

	// GitCommit is intended to be overridden at build time.
	GitCommit = Unknown

	// BuildTime is intended to be overridden at build time (RFC3339 recommended).
	BuildTime = Unknown
)

var readBuildInfo = debug.ReadBuildInfo

// Info contains version metadata for an application.
type Info struct {
	Service   string `json:"service" yaml:"service"`
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
}

// Current returns the current build version metadata. Values not set through ldflags fall
// back to the module version and VCS stamp recorded by the Go toolchain.
func Current(serviceName string) Info {
	info := Info{
		Service:   normalizeOrDefault(serviceName, Unknown),
		Version:   normalizeOrDefault(AppVersion, DevelopmentVersion),
		Commit:    normalizeOrDefault(GitCommit, Unknown),
		BuildTime: normalizeOrDefault(BuildTime, Unknown),
	}

	build, ok := readBuildInfo()
	if !ok {
		return info
	}
	if info.Version == DevelopmentVersion && build.Main.Version != "" && build.Main.Version != "(devel)" {
		info.Version = build.Main.Version
	}
	for _, setting := range build.Settings {
		switch {
		case setting.Key == "vcs.revision" && info.Commit == Unknown:
			info.Commit = setting.Value
		case setting.Key == "vcs.time" && info.BuildTime == Unknown:
			info.BuildTime = setting.Value
		}
	}
	return info
}

// String returns a log-friendly representation.
func (i Info) String() string {
	return fmt.Sprintf("%s@%s (commit=%s, build_time=%s)", i.Service, i.Version, i.Commit, i.BuildTime)
}

func normalizeOrDefault(v, fallback string) string {
	norm := strings.TrimSpace(v)
	if norm == "" {
		return fallback
	}
	return norm
}
