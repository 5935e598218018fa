package handlers

import (
	"net/http"

	"github.com/bookshelf/server/pkg"
	"github.com/bookshelf/server/repository"
)

// StatsResponse is the admin dashboard header.
type StatsResponse struct {
	TotalUsers  int `json:"totalUsers"`
	TotalBooks  int `json:"totalBooks"`
	Connections int `json:"connections"`
}

// StatsHandler serves the counters the admin dashboard shows next to the
// live admin feed.
type StatsHandler struct {
	userRepo repository.UserRepository
	bookRepo repository.BookRepository
	hub      ConnectionCounter
}

func NewStatsHandler(userRepo repository.UserRepository, bookRepo repository.BookRepository, hub ConnectionCounter) *StatsHandler {
	return &StatsHandler{userRepo: userRepo, bookRepo: bookRepo, hub: hub}
}

// GetStats godoc
// GET /api/admin/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.Count(r.Context())
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	books, err := h.bookRepo.Count(r.Context())
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	pkg.JSON(w, http.StatusOK, StatsResponse{
		TotalUsers:  users,
		TotalBooks:  books,
		Connections: h.hub.ConnectionCount(),
	})
}
