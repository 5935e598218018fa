package main

import (
	"time"

	"github.com/bookshelf/server/config"
	"github.com/bookshelf/server/handlers"
	"github.com/bookshelf/server/pkg/ratelimit"
	"github.com/bookshelf/server/ws"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Book         *handlers.BookHandler
	Notification *handlers.NotificationHandler
	Engagement   *handlers.EngagementHandler
	Follow       *handlers.FollowHandler
	Report       *handlers.ReportHandler
	Upload       *handlers.UploadHandler
	Avatar       *handlers.AvatarHandler
	Stats        *handlers.StatsHandler
	WS           *ws.Handler
	Hub          *ws.Hub

	loginLimiter  *ratelimit.LoginRateLimiter
	actionLimiter *ratelimit.ActionRateLimiter
}

func initHandlers(cfg *config.Config, repos *Repositories, svcs *Services, hub *ws.Hub) *Handlers {
	// 5 failed logins per IP per 15 minutes.
	loginLimiter := ratelimit.NewLoginRateLimiter(5, 15*time.Minute)
	// 10 comments/likes per user per 10 seconds, then a 30 second cooldown.
	actionLimiter := ratelimit.NewActionRateLimiter(10, 10*time.Second, 30*time.Second)

	h := &Handlers{
		Auth:          handlers.NewAuthHandler(svcs.Auth, loginLimiter),
		Book:          handlers.NewBookHandler(svcs.Book),
		Notification:  handlers.NewNotificationHandler(svcs.Notification),
		Engagement:    handlers.NewEngagementHandler(svcs.Engagement, actionLimiter),
		Follow:        handlers.NewFollowHandler(svcs.Follow),
		Report:        handlers.NewReportHandler(svcs.Report),
		Stats:         handlers.NewStatsHandler(repos.User, repos.Book, hub),
		WS:            ws.NewHandler(hub, svcs.Auth, cfg.CORS.AllowedOrigins),
		Hub:           hub,
		loginLimiter:  loginLimiter,
		actionLimiter: actionLimiter,
	}
	if svcs.Upload != nil {
		h.Upload = handlers.NewUploadHandler(svcs.Upload, cfg.MinIO.MaxSize)
		h.Avatar = handlers.NewAvatarHandler(svcs.Upload, repos.User, cfg.MinIO.MaxSize)
	}
	return h
}

// Close stops the limiters' cleanup goroutines.
func (h *Handlers) Close() {
	h.loginLimiter.Close()
	h.actionLimiter.Close()
}
