package server

import (
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// rebuildingPage is served whenever a file under the build root cannot be
// read, which is the normal state mid-rebuild. The Refresh header and the
// script both bring the client back once the tree is whole again.
const rebuildingPage = `<!DOCTYPE html>
<html><head><title>Site Rebuilding</title></head>
<body style="font-family: monospace; text-align: center; padding: 50px;">
    <h2>Site Rebuilding...</h2>
    <p>The site is being rebuilt. This page will refresh automatically.</p>
    <script>setTimeout(() => location.reload(), 2000);</script>
</body></html>`

// siteFile is the result of resolving a request path against the build
// root. Read failures are not errors here; they map to the unavailable
// state and the rebuilding placeholder.
type siteFile struct {
	data        []byte
	contentType string
}

// handleSite serves files from the build root. Any failure to produce the
// requested file degrades to a 503 with an auto-refresh placeholder so the
// site stays reachable through a rebuild window.
func (s *DevServer) handleSite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.logResponse(r, http.StatusMethodNotAllowed)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, ok := s.readSiteFile(r.URL.Path)
	if !ok {
		s.serveRebuilding(w, r)
		return
	}

	w.Header().Set("Content-Type", file.contentType)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		w.Write(file.data)
	}
}

// readSiteFile resolves a request path to a file under the build root.
// Directory requests resolve to their index.html. The boolean is false for
// anything that cannot be served right now, including traversal attempts.
func (s *DevServer) readSiteFile(reqPath string) (siteFile, bool) {
	clean := path.Clean("/" + reqPath)
	if strings.Contains(clean, "..") {
		return siteFile{}, false
	}

	target := filepath.Join(s.cfg.Site.BuildDir, filepath.FromSlash(clean))
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		target = filepath.Join(target, "index.html")
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return siteFile{}, false
	}

	contentType := mime.TypeByExtension(filepath.Ext(target))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return siteFile{data: data, contentType: contentType}, true
}

func (s *DevServer) serveRebuilding(w http.ResponseWriter, r *http.Request) {
	s.logResponse(r, http.StatusServiceUnavailable)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Refresh", "2")
	w.WriteHeader(http.StatusServiceUnavailable)
	if r.Method != http.MethodHead {
		w.Write([]byte(rebuildingPage))
	}
}

// logResponse records non-2xx responses with the client address and request
// line. Successful responses stay quiet.
func (s *DevServer) logResponse(r *http.Request, status int) {
	s.logger.Info(r.Context(), "request",
		"remote", r.RemoteAddr,
		"request", r.Method+" "+r.URL.RequestURI(),
		"status", status)
}
