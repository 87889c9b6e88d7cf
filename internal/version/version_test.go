package version_test

import (
	"strings"
	"testing"

	v "github.com/keithlinneman/charactergen/internal/version"
)

func TestGet_Stamped(t *testing.T) {
	oldV, oldC := v.Version, v.Commit
	t.Cleanup(func() { v.Version, v.Commit = oldV, oldC })

	v.Version = "1.4.0"
	v.Commit = "abc123"

	info := v.Get()
	if info.App != v.AppName || info.Component != v.Component {
		t.Fatalf("app/component = %q/%q", info.App, info.Component)
	}
	if info.Version != "1.4.0" || info.Commit != "abc123" {
		t.Fatalf("stamps not reported: %+v", info)
	}
}

func TestGet_GoVersion(t *testing.T) {
	if info := v.Get(); !strings.HasPrefix(info.GoVersion, "go") {
		t.Fatalf("GoVersion = %q", info.GoVersion)
	}
}

func TestUserAgent(t *testing.T) {
	old := v.Version
	t.Cleanup(func() { v.Version = old })
	v.Version = "2.0.1"

	if got := v.UserAgent(); got != "charactergen/2.0.1" {
		t.Fatalf("UserAgent = %q", got)
	}
}
