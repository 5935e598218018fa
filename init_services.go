package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/bookshelf/server/config"
	"github.com/bookshelf/server/pkg/email"
	"github.com/bookshelf/server/pkg/metrics"
	"github.com/bookshelf/server/pkg/storage"
	"github.com/bookshelf/server/services"
	"github.com/bookshelf/server/ws"
)

type Services struct {
	Auth         services.AuthService
	Book         services.BookService
	Notification services.NotificationService
	Engagement   services.EngagementService
	Follow       services.FollowService
	Report       services.ReportService
	// Upload is nil when MinIO is not configured.
	Upload services.UploadService
}

func initServices(
	ctx context.Context,
	cfg *config.Config,
	conn *sql.DB,
	repos *Repositories,
	hub *ws.Hub,
	m *metrics.Metrics,
	log *zap.Logger,
) (*Services, error) {
	feed := services.NewAdminFeed(hub)

	var mailer email.Sender
	if cfg.Email.Enabled() {
		mailer = email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.FromEmail, cfg.Email.AppURL)
		log.Info("notification emails enabled")
	}

	notifications := services.NewNotificationService(repos.Notification, repos.User, hub, mailer, m, log)

	svcs := &Services{
		Auth:         services.NewAuthService(repos.User, feed, cfg.JWT.Secret, cfg.JWT.AccessToken),
		Book:         services.NewBookService(repos.Book, feed),
		Notification: notifications,
		Engagement: services.NewEngagementService(
			conn,
			repos.Book,
			repos.Comment,
			repos.Interaction,
			repos.User,
			notifications,
			hub,
			log,
		),
		Follow: services.NewFollowService(repos.Follow, repos.User, notifications, log),
		Report: services.NewReportService(repos.Report, feed),
	}

	if cfg.MinIO.Enabled() {
		client, err := config.NewMinIOClient(ctx, cfg.MinIO, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize minio: %w", err)
		}
		store := storage.NewMinIOStore(client, cfg.MinIO.Bucket, cfg.MinIO.PublicURL)
		svcs.Upload = services.NewUploadService(store, cfg.MinIO.MaxSize)
	} else {
		log.Info("minio not configured, uploads disabled")
	}

	return svcs, nil
}
