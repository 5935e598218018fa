package repository

import (
	"context"

	"github.com/bookshelf/server/models"
)

type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	List(ctx context.Context, limit, offset int) ([]models.Report, error)
}
