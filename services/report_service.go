package services

import (
	"context"
	"fmt"

	"github.com/bookshelf/server/models"
	"github.com/bookshelf/server/pkg"
	"github.com/bookshelf/server/repository"
)

type ReportService interface {
	Submit(ctx context.Context, reporterID string, req *models.CreateReportRequest) (*models.Report, error)
	List(ctx context.Context, page models.PageParams) ([]models.Report, error)
}

type reportService struct {
	reports repository.ReportRepository
	feed    *AdminFeed
}

func NewReportService(reports repository.ReportRepository, feed *AdminFeed) ReportService {
	return &reportService{reports: reports, feed: feed}
}

func (s *reportService) Submit(ctx context.Context, reporterID string, req *models.CreateReportRequest) (*models.Report, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	report := &models.Report{
		ReporterID: reporterID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Reason:     req.Reason,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	if s.feed != nil {
		s.feed.ReportSubmitted(*report)
	}
	return report, nil
}

func (s *reportService) List(ctx context.Context, page models.PageParams) ([]models.Report, error) {
	page.Normalize()
	return s.reports.List(ctx, page.Limit, page.Offset())
}
