package gateway

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// staticHandler serves the browser client assets from the configured static
// directory, falling back to index.html for client-side routes. With no
// directory configured it answers 404 for everything but "/".
func (s *Server) staticHandler() http.Handler {
	dir := ""
	if s.cfg != nil {
		dir = s.cfg.Server.StaticDir
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if dir == "" {
			if r.URL.Path == "/" {
				writeJSON(w, http.StatusOK, map[string]any{"service": "sonoglot"})
				return
			}
			http.NotFound(w, r)
			return
		}

		// Captions and the client state change constantly; never let the
		// browser cache stale assets.
		w.Header().Set("Cache-Control", "no-cache")

		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			http.ServeFile(w, r, path)
			return
		}

		// Unknown non-API paths get index.html so client-side routing works.
		if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/") {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}
