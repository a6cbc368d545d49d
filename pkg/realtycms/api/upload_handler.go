package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/indrealty/realty-cms/pkg/realtycms"
)

// uploadFolder holds images uploaded outside of a content item.
const uploadFolder = "uploads"

// UploadHandler stores standalone images.
type UploadHandler struct {
	images *realtycms.ImageService
}

// NewUploadHandler creates an upload handler.
func NewUploadHandler(images *realtycms.ImageService) *UploadHandler {
	return &UploadHandler{images: images}
}

// Upload handles POST /upload with a multipart "image" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		errorJSON(w, r, http.StatusServiceUnavailable, "Image uploads are not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.images.MaxBytes()+1<<20)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorJSON(w, r, http.StatusBadRequest, "File too large")
			return
		}
		errorJSON(w, r, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	stored, err := h.images.UploadImage(r.Context(), uploadFolder, realtycms.ImageUpload{
		Reader:      file,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"success":  true,
		"imageUrl": stored.URL,
	})
}
