package handlers

import (
	"net/http"

	"github.com/bookshelf/server/pkg"
	"github.com/bookshelf/server/services"
)

type UploadHandler struct {
	uploadService services.UploadService
	maxSize       int64
}

func NewUploadHandler(uploadService services.UploadService, maxSize int64) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, maxSize: maxSize}
}

// Upload godoc
// POST /api/uploads (multipart, field "file")
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+1<<20)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "file too large or invalid form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	result, err := h.uploadService.Upload(r.Context(), user.ID, header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, result)
}
