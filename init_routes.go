package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bookshelf/server/config"
	"github.com/bookshelf/server/handlers"
	"github.com/bookshelf/server/middleware"
	"github.com/bookshelf/server/repository"
	"github.com/bookshelf/server/services"
)

func initRoutes(
	mux *http.ServeMux,
	cfg *config.Config,
	h *Handlers,
	authService services.AuthService,
	userRepo repository.UserRepository,
) {
	authMw := middleware.NewAuthMiddleware(authService, userRepo)

	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}
	authAdmin := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(middleware.RequireAdmin(handler))
	}

	// ─── Health / metrics ───
	mux.HandleFunc("GET /api/health", handlers.Health(h.Hub))
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.Handler())
	}

	// ─── Auth ───
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.Handle("GET /api/users/me", auth(h.Auth.Me))

	// ─── Notifications ───
	mux.Handle("GET /api/notifications", auth(h.Notification.List))
	mux.Handle("GET /api/notifications/unread-count", auth(h.Notification.UnreadCount))
	mux.Handle("POST /api/notifications/mark-as-read", auth(h.Notification.MarkAllRead))
	mux.Handle("POST /api/notifications/{id}/mark-one-as-read", auth(h.Notification.MarkOneRead))
	mux.Handle("POST /api/notifications/{id}/mark-one-as-unread", auth(h.Notification.MarkOneUnread))
	mux.Handle("DELETE /api/notifications/{id}", auth(h.Notification.Delete))
	mux.Handle("DELETE /api/notifications", auth(h.Notification.DeleteAll))

	// ─── Books & engagement ───
	mux.Handle("GET /api/books", auth(h.Book.List))
	mux.Handle("POST /api/books", auth(h.Book.Create))
	mux.Handle("GET /api/books/{id}", auth(h.Book.Get))
	mux.Handle("GET /api/books/{id}/interaction", auth(h.Engagement.Interaction))
	mux.Handle("POST /api/books/{id}/like", auth(h.Engagement.Like))
	mux.Handle("DELETE /api/books/{id}/like", auth(h.Engagement.Unlike))
	mux.Handle("POST /api/books/{id}/dislike", auth(h.Engagement.Dislike))
	mux.Handle("DELETE /api/books/{id}/dislike", auth(h.Engagement.RemoveDislike))
	mux.Handle("GET /api/books/{id}/comments", auth(h.Engagement.ListComments))
	mux.Handle("POST /api/books/{id}/comments", auth(h.Engagement.CreateComment))
	mux.Handle("PATCH /api/comments/{id}", auth(h.Engagement.UpdateComment))
	mux.Handle("DELETE /api/comments/{id}", auth(h.Engagement.DeleteComment))

	// ─── Follows ───
	mux.Handle("POST /api/users/{id}/follow", auth(h.Follow.Follow))
	mux.Handle("DELETE /api/users/{id}/follow", auth(h.Follow.Unfollow))

	// ─── Reports & admin ───
	mux.Handle("POST /api/reports", auth(h.Report.Submit))
	mux.Handle("GET /api/admin/reports", authAdmin(h.Report.List))
	mux.Handle("GET /api/admin/stats", authAdmin(h.Stats.GetStats))

	// ─── Uploads ───
	if h.Upload != nil {
		mux.Handle("POST /api/uploads", auth(h.Upload.Upload))
		mux.Handle("POST /api/users/me/avatar", auth(h.Avatar.UploadUserAvatar))
	}

	// ─── WebSocket ───
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)
}
