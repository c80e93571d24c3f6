package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cybercell/cybercell-api/internal/models"
	appErrors "github.com/cybercell/cybercell-api/pkg/errors"
	"github.com/cybercell/cybercell-api/pkg/export"
)

type caseFileReader interface {
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*ReportDetailResponse, error)
	Manage(ctx context.Context, actor *models.JWTClaims, filter models.ReportFilter) ([]models.ReportDetail, *models.Pagination, error)
}

// ExportService renders reports into downloadable documents. Access control is
// delegated to the report service, so exports obey the same visibility rules
// as the JSON endpoints.
type ExportService struct {
	reports caseFileReader
	pdf     *export.PDFExporter
	csv     *export.CSVExporter
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(reports caseFileReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		reports: reports,
		pdf:     export.NewPDFExporter(),
		csv:     export.NewCSVExporter(),
		logger:  logger,
	}
}

// CaseFilePDF renders a single report, with its update log, as a PDF.
func (s *ExportService) CaseFilePDF(ctx context.Context, actor *models.JWTClaims, reportID string) ([]byte, string, error) {
	detail, err := s.reports.Get(ctx, actor, reportID)
	if err != nil {
		return nil, "", err
	}

	report := detail.Report
	assignee := "Unassigned"
	if report.AssigneeUsername != nil {
		assignee = *report.AssigneeUsername
	}
	timeOfCrime := "Not recorded"
	if report.TimeOfCrime != nil {
		timeOfCrime = *report.TimeOfCrime
	}

	cf := export.CaseFile{
		Title: fmt.Sprintf("Case File: %s", report.Title),
		Fields: []export.CaseField{
			{Label: "Case ID", Value: report.ID},
			{Label: "Status", Value: string(report.Status)},
			{Label: "Category", Value: report.CategoryName},
			{Label: "Date of Crime", Value: report.DateOfCrime.Format("2006-01-02")},
			{Label: "Time of Crime", Value: timeOfCrime},
			{Label: "Location", Value: fmt.Sprintf("%s, %s, %s - %s", report.Area, report.City, report.State, report.Pincode)},
			{Label: "Reported By", Value: report.ReporterUsername},
			{Label: "Reported On", Value: report.ReportedOn.Format("2006-01-02 15:04")},
			{Label: "Assigned To", Value: assignee},
			{Label: "Description", Value: report.Description},
		},
	}
	for _, update := range detail.Updates {
		cf.Updates = append(cf.Updates, export.CaseNote{
			Author: update.UpdatedBy,
			Date:   update.UpdatedOn.Format("2006-01-02 15:04"),
			Body:   update.Body,
		})
	}

	content, err := s.pdf.Render(cf)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render case file")
	}
	filename := fmt.Sprintf("case-%s.pdf", report.ID)
	return content, filename, nil
}

// ManageCSV renders the staff management listing as CSV, applying the same
// scoping as the management endpoint.
func (s *ExportService) ManageCSV(ctx context.Context, actor *models.JWTClaims, filter models.ReportFilter) ([]byte, string, error) {
	filter.Page = 1
	filter.PageSize = 100
	reports, _, err := s.reports.Manage(ctx, actor, filter)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"id", "title", "category", "status", "city", "state", "date_of_crime", "reported_by", "assigned_to", "reported_on"},
	}
	for _, r := range reports {
		assignee := ""
		if r.AssigneeUsername != nil {
			assignee = *r.AssigneeUsername
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"id":            r.ID,
			"title":         r.Title,
			"category":      r.CategoryName,
			"status":        string(r.Status),
			"city":          r.City,
			"state":         r.State,
			"date_of_crime": r.DateOfCrime.Format("2006-01-02"),
			"reported_by":   r.ReporterUsername,
			"assigned_to":   assignee,
			"reported_on":   r.ReportedOn.Format(time.RFC3339),
		})
	}

	filename := fmt.Sprintf("reports-%s.csv", time.Now().UTC().Format("20060102-150405"))
	s.logger.Info("rendered report export", zap.Int("rows", len(dataset.Rows)))
	content, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return content, filename, nil
}
