package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// SPAMiddleware serves the web client from staticPath. API, health and
// metrics requests pass through to next; unknown paths fall back to index.html
// so client-side routes such as /filters resolve.
func SPAMiddleware(next http.Handler, staticPath string) http.Handler {
	if staticPath == "" {
		return next
	}

	indexPath := filepath.Join(staticPath, "index.html")
	files := http.FileServer(http.Dir(staticPath))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") ||
			r.URL.Path == "/healthz" ||
			r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		if r.URL.Path == "/" {
			http.ServeFile(w, r, indexPath)
			return
		}

		path := filepath.Join(staticPath, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, r, indexPath)
			return
		}

		files.ServeHTTP(w, r)
	})
}
