package handlers

import (
	"net/http"
	"strconv"

	"github.com/bookshelf/server/models"
)

type contextKey string

// UserContextKey carries the authenticated *models.User, set by the auth
// middleware.
const UserContextKey contextKey = "user"

// CurrentUser returns the user the auth middleware attached to r.
func CurrentUser(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// pageParams reads ?page= and ?limit=; bad values fall back to defaults.
func pageParams(r *http.Request) models.PageParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	p := models.PageParams{Page: page, Limit: limit}
	p.Normalize()
	return p
}
