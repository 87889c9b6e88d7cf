// Package webassets embeds the browser UI served at /.
package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed site
var embedded embed.FS

// SiteFS returns the UI rooted at site/
func SiteFS() fs.FS {
	sub, err := fs.Sub(embedded, "site")
	if err != nil {
		panic(fmt.Errorf("webassets: site subfs: %w", err))
	}
	return sub
}
