package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/indrealty/realty-cms/pkg/realtycms"
)

// ImageHandler serves images kept by stores without a public endpoint of
// their own, such as memory and the local filesystem.
type ImageHandler struct {
	images *realtycms.ImageService
}

// NewImageHandler creates an image handler.
func NewImageHandler(images *realtycms.ImageService) *ImageHandler {
	return &ImageHandler{images: images}
}

// Serve handles GET {prefix}/*, where the rest of the path is the object key.
func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if h.images == nil || key == "" {
		http.NotFound(w, r)
		return
	}

	meta, body, err := h.images.OpenImage(r.Context(), key)
	if err != nil {
		if errors.Is(err, realtycms.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to open image", "key", key, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	if !meta.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", meta.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, body); err != nil {
		slog.WarnContext(r.Context(), "Failed to stream image", "key", key, "err", err)
	}
}
