// Package version reports build metadata stamped through -ldflags, filled in
// from the Go build info when the stamps are absent.
package version

import (
	"runtime/debug"
	"sync"
)

const (
	AppName   = "charactergen"
	Component = "server"
)

// set with -ldflags "-X github.com/keithlinneman/charactergen/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate string
	BuildID   string
)

type Info struct {
	App        string `json:"app"`
	Component  string `json:"component"`
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	CommitDate string `json:"commit_date,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
	BuildID    string `json:"build_id,omitempty"`
	GoVersion  string `json:"go_version"`
	VCSDirty   *bool  `json:"vcs_dirty,omitempty"`
}

var readBuildInfo = sync.OnceValues(debug.ReadBuildInfo)

func Get() Info {
	out := Info{
		App:       AppName,
		Component: Component,
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
	}
	bi, ok := readBuildInfo()
	if !ok {
		return out
	}
	out.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		if s.Value == "" {
			continue
		}
		switch s.Key {
		case "vcs.revision":
			if out.Commit == "none" {
				out.Commit = s.Value
			}
		case "vcs.time":
			out.CommitDate = s.Value
			if out.BuildDate == "" {
				out.BuildDate = s.Value
			}
		case "vcs.modified":
			dirty := s.Value == "true"
			out.VCSDirty = &dirty
		}
	}
	return out
}

// UserAgent identifies outbound calls made by this build
func UserAgent() string { return AppName + "/" + Version }
