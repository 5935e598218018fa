package handlers

import (
	"net/http"

	"github.com/bookshelf/server/pkg"
)

// ConnectionCounter reports live websocket connections.
type ConnectionCounter interface {
	ConnectionCount() int
}

// Health godoc
// GET /api/health
func Health(hub ConnectionCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pkg.JSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"connections": hub.ConnectionCount(),
		})
	}
}
