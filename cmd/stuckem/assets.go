package main

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed web/*
var embeddedWeb embed.FS

// webHandler serves the browser client. The page and its scripts are
// revalidated on every load so a new release reaches open tables.
func webHandler() (http.Handler, error) {
	return newWebHandler(embeddedWeb, "web")
}

func newWebHandler(fsys fs.FS, dir string) (http.Handler, error) {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, err
	}
	if _, err := fs.Stat(sub, "index.html"); err != nil {
		return nil, fmt.Errorf("web client: %w", err)
	}

	files := http.FileServer(http.FS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch path.Ext(r.URL.Path) {
		case "", ".html", ".js", ".css":
			w.Header().Set("Cache-Control", "no-cache")
		}
		if strings.HasSuffix(r.URL.Path, "/index.html") {
			// FileServer would redirect to the directory.
			r2 := r.Clone(r.Context())
			r2.URL.Path = strings.TrimSuffix(r.URL.Path, "index.html")
			r = r2
		}
		files.ServeHTTP(w, r)
	}), nil
}
