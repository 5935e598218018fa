package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bookshelf/server/handlers"
	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg"
	"github.com/bookshelf/server/services"
)

type stubAuth struct {
	services.AuthService
	claims map[string]*models.TokenClaims
}

func (s *stubAuth) ValidateAccessToken(token string) (*models.TokenClaims, error) {
	if c, ok := s.claims[token]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
}

type stubUsers struct {
	users map[string]*models.User
}

func (s *stubUsers) Create(context.Context, *models.User) error { return nil }
func (s *stubUsers) GetByUsername(context.Context, string) (*models.User, error) {
	return nil, pkg.ErrNotFound
}
func (s *stubUsers) Count(context.Context) (int, error) { return len(s.users), nil }
func (s *stubUsers) UpdateAvatar(context.Context, string, string) error { return nil }
func (s *stubUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, pkg.ErrNotFound
}

func newAuthMiddleware() *AuthMiddleware {
	auth := &stubAuth{claims: map[string]*models.TokenClaims{
		"user-token":  {UserID: "u1"},
		"admin-token": {UserID: "a1"},
		"ghost-token": {UserID: "gone"},
	}}
	users := &stubUsers{users: map[string]*models.User{
		"u1": {ID: "u1", Username: "reader", Role: models.RoleUser, PasswordHash: "secret"},
		"a1": {ID: "a1", Username: "root", Role: models.RoleAdmin},
	}}
	return NewAuthMiddleware(auth, users)
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequire(t *testing.T) {
	var seen *models.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = handlers.CurrentUser(r)
		w.WriteHeader(http.StatusNoContent)
	})
	h := newAuthMiddleware().Require(next)

	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "Token user-token").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "Bearer nope").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "Bearer ghost-token").Code)

	rec := serve(h, "Bearer user-token")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	if assert.NotNil(t, seen) {
		assert.Equal(t, "reader", seen.Username)
		assert.Empty(t, seen.PasswordHash)
	}
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := newAuthMiddleware().Require(RequireAdmin(next))

	assert.Equal(t, http.StatusForbidden, serve(h, "Bearer user-token").Code)
	assert.Equal(t, http.StatusNoContent, serve(h, "Bearer admin-token").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(RequireAdmin(next), "").Code)
}
