package sitehandler

import (
	"io/fs"
	"path"
	"strings"

	"github.com/keithlinneman/charactergen/internal/pathutil"
)

// resolvePath maps a URL path to a file within fsys.
//
//	/            -> index.html
//	/dir/        -> dir/index.html
//	/prompt      -> prompt.html, or a redirect to /prompt/ when prompt/index.html exists
//	/app.js      -> app.js
//
// redirectTo is set when the caller should redirect instead of serving.
func resolvePath(urlPath string, fsys fs.FS) (file string, redirectTo string, ok bool) {
	clean, ok := pathutil.CleanURLPath(urlPath)
	if !ok {
		return "", "", false
	}

	if clean == "/" {
		return found(fsys, "index.html")
	}
	rel := strings.TrimPrefix(clean, "/")

	if strings.HasSuffix(rel, "/") {
		return found(fsys, rel+"index.html")
	}
	if path.Ext(rel) != "" {
		return found(fsys, rel)
	}

	// pretty URL for a page file
	if existsFile(fsys, rel+".html") {
		return rel + ".html", "", true
	}
	if existsFile(fsys, rel+"/index.html") {
		return "", clean + "/", true
	}
	return "", "", false
}

func found(fsys fs.FS, name string) (string, string, bool) {
	if existsFile(fsys, name) {
		return name, "", true
	}
	return "", "", false
}

func existsFile(fsys fs.FS, name string) bool {
	if name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
