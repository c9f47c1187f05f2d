package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/skylarkwx/skylark/pkg/logger"
)

// StaticFileHandler serves the dashboard frontend from disk without caching,
// so edits to the page show up on the next reload
type StaticFileHandler struct {
	staticDir string
	logger    *logger.Logger
}

// NewStaticFileHandler creates a new static file handler
func NewStaticFileHandler(staticDir string, logger *logger.Logger) *StaticFileHandler {
	return &StaticFileHandler{
		staticDir: staticDir,
		logger:    logger.Named("static-handler"),
	}
}

// ServeHTTP serves a single static file, falling back to index.html for
// directory requests
func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(filepath.Clean(r.URL.Path), "/")
	if path == "" || path == "." {
		path = "index.html"
	}

	fullPath, err := h.resolve(path)
	if err != nil {
		h.logger.Warn("Rejected static file request",
			logger.String("requested_path", r.URL.Path),
			logger.Error(err))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	info, err := os.Stat(fullPath)
	if os.IsNotExist(err) {
		h.logger.Debug("File not found", logger.String("path", fullPath))
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("Failed to stat file", logger.Error(err), logger.String("path", fullPath))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Directory requests get the directory's index.html or nothing
	if info.IsDir() {
		indexPath := filepath.Join(fullPath, "index.html")
		if _, err := os.Stat(indexPath); err != nil {
			h.logger.Debug("Directory listing not allowed", logger.String("path", fullPath))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		fullPath = indexPath
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	h.logger.Debug("Serving static file",
		logger.String("requested_path", r.URL.Path),
		logger.String("file_path", fullPath))

	http.ServeFile(w, r, fullPath)
}

// resolve joins the request path with the static directory and verifies the
// result stays inside it
func (h *StaticFileHandler) resolve(path string) (string, error) {
	absStaticDir, err := filepath.Abs(h.staticDir)
	if err != nil {
		return "", err
	}

	fullPath, err := filepath.Abs(filepath.Join(h.staticDir, path))
	if err != nil {
		return "", err
	}

	if fullPath != absStaticDir && !strings.HasPrefix(fullPath, absStaticDir+string(filepath.Separator)) {
		return "", os.ErrPermission
	}
	return fullPath, nil
}
