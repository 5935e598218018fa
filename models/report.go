package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ReportTargetType is what a report complains about.
type ReportTargetType string

const (
	ReportTargetBook    ReportTargetType = "book"
	ReportTargetComment ReportTargetType = "comment"
	ReportTargetUser    ReportTargetType = "user"
)

// Report is a moderation report submitted by a user.
type Report struct {
	ID         string           `json:"id"`
	ReporterID string           `json:"reporterId"`
	TargetType ReportTargetType `json:"targetType"`
	TargetID   string           `json:"targetId"`
	Reason     string           `json:"reason"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// CreateReportRequest is the body of POST /reports.
type CreateReportRequest struct {
	TargetType ReportTargetType `json:"targetType"`
	TargetID   string           `json:"targetId"`
	Reason     string           `json:"reason"`
}

// Validate checks the report body.
func (r *CreateReportRequest) Validate() error {
	switch r.TargetType {
	case ReportTargetBook, ReportTargetComment, ReportTargetUser:
	default:
		return fmt.Errorf("targetType must be one of book, comment, user")
	}
	r.TargetID = strings.TrimSpace(r.TargetID)
	if r.TargetID == "" {
		return fmt.Errorf("targetId is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	n := utf8.RuneCountInString(r.Reason)
	if n == 0 || n > 500 {
		return fmt.Errorf("reason must be between 1 and 500 characters")
	}
	return nil
}
