package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg"
	"github.com/bookshelf/server/pkg/ratelimit"
	"github.com/bookshelf/server/services"
)

// EngagementHandler serves comments and likes/dislikes. Writes are
// limited per user by an optional ActionRateLimiter.
type EngagementHandler struct {
	engagementService services.EngagementService
	limiter           *ratelimit.ActionRateLimiter
}

func NewEngagementHandler(engagementService services.EngagementService, limiter *ratelimit.ActionRateLimiter) *EngagementHandler {
	return &EngagementHandler{
		engagementService: engagementService,
		limiter:           limiter,
	}
}

// allow writes a 429 and returns false when the user is in cooldown.
func (h *EngagementHandler) allow(w http.ResponseWriter, userID string) bool {
	if h.limiter == nil || h.limiter.Allow(userID) {
		return true
	}
	seconds := h.limiter.CooldownSeconds(userID)
	w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
		fmt.Sprintf("slow down, try again in %s", ratelimit.FormatRetryMessage(seconds)))
	return false
}

// ListComments godoc
// GET /api/books/{id}/comments
func (h *EngagementHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.engagementService.ListComments(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, comments)
}

// CreateComment godoc
// POST /api/books/{id}/comments
func (h *EngagementHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.allow(w, user.ID) {
		return
	}

	var req models.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, err := h.engagementService.CreateComment(r.Context(), r.PathValue("id"), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, comment)
}

// UpdateComment godoc
// PATCH /api/comments/{id}
func (h *EngagementHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, err := h.engagementService.UpdateComment(r.Context(), r.PathValue("id"), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, comment)
}

// DeleteComment godoc
// DELETE /api/comments/{id}
func (h *EngagementHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := r.PathValue("id")
	if err := h.engagementService.DeleteComment(r.Context(), id, user.ID, user.IsAdmin()); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"commentId": id})
}

// Interaction godoc
// GET /api/books/{id}/interaction
func (h *EngagementHandler) Interaction(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.engagementService.Interaction(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, snapshot)
}

// Like godoc
// POST /api/books/{id}/like
func (h *EngagementHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.interact(w, r, h.engagementService.Like)
}

// Unlike godoc
// DELETE /api/books/{id}/like
func (h *EngagementHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.interact(w, r, h.engagementService.Unlike)
}

// Dislike godoc
// POST /api/books/{id}/dislike
func (h *EngagementHandler) Dislike(w http.ResponseWriter, r *http.Request) {
	h.interact(w, r, h.engagementService.Dislike)
}

// RemoveDislike godoc
// DELETE /api/books/{id}/dislike
func (h *EngagementHandler) RemoveDislike(w http.ResponseWriter, r *http.Request) {
	h.interact(w, r, h.engagementService.RemoveDislike)
}

func (h *EngagementHandler) interact(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, bookID, userID string) (*models.BookInteraction, error),
) {
	user, ok := CurrentUser(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.allow(w, user.ID) {
		return
	}

	snapshot, err := op(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, snapshot)
}
