// Package version identifies the running build.
//
// Release builds stamp the values with ldflags:
//
//	go build -ldflags "-X github.com/rickgao/marketdash/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/marketdash/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/marketdash/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Unstamped builds fall back to the VCS data the Go toolchain embeds.
package version

import (
	"runtime"
	"runtime/debug"
	"sync"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info describes the build, as reported by the health endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

var (
	infoOnce sync.Once
	info     Info
)

// Get returns the build info. ldflags values win over embedded VCS settings.
func Get() Info {
	infoOnce.Do(func() {
		info = fromBuildInfo(Version, Commit, BuildTime, debug.ReadBuildInfo)
	})
	return info
}

func fromBuildInfo(version, commit, buildTime string, read func() (*debug.BuildInfo, bool)) Info {
	out := Info{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
	bi, ok := read()
	if !ok {
		return out
	}
	out.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if out.Commit == "unknown" {
				out.Commit = s.Value
				if len(out.Commit) > 7 {
					out.Commit = out.Commit[:7]
				}
			}
		case "vcs.time":
			if out.BuildTime == "unknown" {
				out.BuildTime = s.Value
			}
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}
	return out
}

// String renders the build for logs.
func String() string {
	i := Get()
	s := i.Version + " (" + i.Commit + ") built " + i.BuildTime
	if i.Modified {
		s += " +dirty"
	}
	return s
}

// UserAgent is sent on the WebSocket handshake and by the API client.
func UserAgent() string {
	return "marketdash/" + Version
}
