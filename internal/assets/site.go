// ABOUTME: Static site file server with cache headers suited to version checking
// ABOUTME: version.json and the worker script are never cached; hashed assets are immutable

package assets

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
)

// Files that must always be revalidated so clients see a new release at once.
const (
	VersionFile  = "version.json"
	WorkerScript = "sw.js"
)

// hashPattern detects bundler content hashes in filenames (e.g. ".CU4W1PlC.").
var hashPattern = regexp.MustCompile(`\.[a-zA-Z0-9_-]{8,}\.`)

func init() {
	_ = mime.AddExtensionType(".woff2", "font/woff2")
	_ = mime.AddExtensionType(".webmanifest", "application/manifest+json")
}

// containsHash reports whether the given path contains a content hash.
func containsHash(p string) bool {
	return hashPattern.MatchString(p)
}

// mimeFromExt returns the MIME type for a file extension, falling back to
// the standard library database and then application/octet-stream.
func mimeFromExt(ext string) string {
	switch ext {
	case ".js", ".mjs":
		return "application/javascript"
	case ".css":
		return "text/css; charset=utf-8"
	case ".json":
		return "application/json"
	case ".svg":
		return "image/svg+xml"
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
		return "application/octet-stream"
	}
}

// CachePolicy returns the Cache-Control value for a request path.
func CachePolicy(p string) string {
	switch path.Base(p) {
	case VersionFile, WorkerScript:
		return "no-cache"
	}
	if containsHash(p) {
		return "public, max-age=31536000, immutable"
	}
	return "no-cache"
}

// FileServer serves the site rooted at root. The worker script is also
// allowed to control the whole origin.
func FileServer(root fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ext := strings.ToLower(path.Ext(r.URL.Path))
		if ext != "" {
			w.Header().Set("Content-Type", mimeFromExt(ext))
		}

		w.Header().Set("Cache-Control", CachePolicy(r.URL.Path))
		if path.Base(r.URL.Path) == WorkerScript {
			w.Header().Set("Service-Worker-Allowed", "/")
		}

		fileServer.ServeHTTP(w, r)
	})
}
