package main

import (
	"database/sql"

	"github.com/bookshelf/server/repository"
)

// Repositories groups every repository built on the shared connection.
type Repositories struct {
	User         repository.UserRepository
	Book         repository.BookRepository
	Interaction  repository.InteractionRepository
	Comment      repository.CommentRepository
	Notification repository.NotificationRepository
	Follow       repository.FollowRepository
	Report       repository.ReportRepository
}

func initRepositories(conn *sql.DB) *Repositories {
	return &Repositories{
		User:         repository.NewSQLiteUserRepo(conn),
		Book:         repository.NewSQLiteBookRepo(conn),
		Interaction:  repository.NewSQLiteInteractionRepo(conn),
		Comment:      repository.NewSQLiteCommentRepo(conn),
		Notification: repository.NewSQLiteNotificationRepo(conn),
		Follow:       repository.NewSQLiteFollowRepo(conn),
		Report:       repository.NewSQLiteReportRepo(conn),
	}
}
