package handlers

import (
	"net/http"

	"github.com/bookshelf/server/pkg"
	"github.com/bookshelf/server/repository"
	"github.com/bookshelf/server/services"
)

// avatarMaxSize is lower than the general upload limit; avatars are shown
// small inside every notification and comment.
const avatarMaxSize = 8 << 20

// AvatarHandler stores a profile picture through the upload pipeline and
// points the user's avatar_url at it. Notifications and comments resolve
// the sender summary at read time, so the new avatar shows up everywhere
// without rewriting old rows.
type AvatarHandler struct {
	uploadService services.UploadService
	userRepo      repository.UserRepository
	maxSize       int64
}

func NewAvatarHandler(uploadService services.UploadService, userRepo repository.UserRepository, maxSize int64) *AvatarHandler {
	if maxSize <= 0 || maxSize > avatarMaxSize {
		maxSize = avatarMaxSize
	}
	return &AvatarHandler{uploadService: uploadService, userRepo: userRepo, maxSize: maxSize}
}

// UploadUserAvatar godoc
// POST /api/users/me/avatar (multipart, field "file")
// Response: the updated user.
func (h *AvatarHandler) UploadUserAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

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

	if header.Size > h.maxSize {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "avatar too large")
		return
	}

	result, err := h.uploadService.Upload(r.Context(), user.ID, header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	if err := h.userRepo.UpdateAvatar(r.Context(), user.ID, result.URL); err != nil {
		pkg.Error(w, err)
		return
	}

	updated, err := h.userRepo.GetByID(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	updated.PasswordHash = ""

	pkg.JSON(w, http.StatusOK, updated)
}
