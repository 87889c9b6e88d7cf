// Package pathutil normalizes untrusted URL paths before they touch a
// filesystem.
package pathutil

import (
	"path"
	"strings"
)

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// CleanURLPath returns p rooted at "/" and cleaned, keeping a trailing slash.
// ok is false for paths carrying NUL, backslashes or dot segments, which are
// rejected rather than normalized away.
func CleanURLPath(p string) (clean string, ok bool) {
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if strings.ContainsAny(p, "\x00\\") || HasDotSegments(p) {
		return "", false
	}
	clean = path.Clean(p)
	if strings.HasSuffix(p, "/") && clean != "/" {
		clean += "/"
	}
	return clean, true
}
