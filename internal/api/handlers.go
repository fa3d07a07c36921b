package api

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cinevault/internal/auth"
	"cinevault/internal/storage"
)

// Handler carries the dependencies shared by every endpoint.
type Handler struct {
	Store  storage.Repository
	Tokens *auth.TokenManager
	Logger *slog.Logger

	// UploadDir is where poster files are stored. Resolved lazily so the
	// directory is only created once an upload actually happens.
	UploadDir     string
	uploadDir     string
	uploadDirOnce sync.Once
}

func NewHandler(store storage.Repository, tokens *auth.TokenManager) *Handler {
	return &Handler{Store: store, Tokens: tokens}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Health reports whether the datastore is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.Store.Ping(r.Context()); err != nil {
		h.logger().Error("datastore ping failed", "error", err)
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func (h *Handler) posterDir() string {
	h.uploadDirOnce.Do(func() {
		dir := strings.TrimSpace(h.UploadDir)
		if dir == "" {
			dir = "uploads"
		}
		dir = filepath.Clean(dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			dir = filepath.Join(os.TempDir(), "cinevault-uploads")
			_ = os.MkdirAll(dir, 0o755)
		}
		h.uploadDir = dir
	})
	if h.uploadDir == "" {
		return "uploads"
	}
	return h.uploadDir
}

// PosterDir exposes the resolved upload directory for the static file route.
func (h *Handler) PosterDir() string {
	return h.posterDir()
}
