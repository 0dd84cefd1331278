// Package web embeds the widget frontend: the iframe chat shell and the
// embed script third-party pages load to inject the bubble.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// SPAHandler serves the embedded widget assets. Paths that do not match a
// file fall back to the chat shell, and the embed script gets a short cache
// lifetime so widget updates reach embedding pages quickly.
func SPAHandler() http.Handler {
	assets, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: embedded dist missing: " + err.Error())
	}
	files := http.FileServer(http.FS(assets))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" {
			name = "index.html"
		}
		if name == "embed.js" {
			w.Header().Set("Cache-Control", "public, max-age=300")
		}
		if _, err := fs.Stat(assets, name); err != nil {
			// Unknown path: serve the chat shell.
			r.URL.Path = "/"
		}
		files.ServeHTTP(w, r)
	})
}
