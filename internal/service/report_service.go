package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercell/cybercell-api/internal/models"
	appErrors "github.com/cybercell/cybercell-api/pkg/errors"
	"github.com/cybercell/cybercell-api/pkg/storage"
	"github.com/cybercell/cybercell-api/pkg/upload"
)

const assigneeRequiredMessage = "An officer must be assigned for investigating or resolved cases."
const assigneeRoleMessage = "Case can only be assigned to police officers or admins."

type reportRepository interface {
	Create(ctx context.Context, report *models.Report, loc *models.Location) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	GetDetail(ctx context.Context, id string) (*models.ReportDetail, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.ReportDetail, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus, assignedTo *string, update *models.ReportUpdate) error
	AppendUpdate(ctx context.Context, update *models.ReportUpdate) error
	ListUpdates(ctx context.Context, reportID string) ([]models.ReportUpdate, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
}

type assigneeResolver interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

type evidenceStorage interface {
	SaveStream(bucket, filename string, r io.Reader) (string, error)
	Delete(path string) error
}

type reportMetrics interface {
	RecordReportCreated()
	RecordStatusChange(status string)
	RecordUploadRejection(code string)
}

type statsInvalidator interface {
	Invalidate(ctx context.Context)
}

// CreateReportRequest is the citizen-facing submission payload.
type CreateReportRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"required"`
	DateOfCrime string  `json:"date_of_crime" validate:"required"`
	TimeOfCrime *string `json:"time_of_crime"`
	CategoryID  string  `json:"category_id" validate:"required"`
	City        string  `json:"city" validate:"required,max=100"`
	State       string  `json:"state" validate:"required,max=100"`
	Area        string  `json:"area" validate:"required,max=100"`
	Pincode     string  `json:"pincode" validate:"required"`
}

// StatusUpdateRequest carries a lifecycle transition. AssignedTo keeps the
// current assignee when nil; a pointer to the empty string clears it. A
// non-empty UpdateText appends a staff note in the same transaction.
type StatusUpdateRequest struct {
	Status     models.ReportStatus `json:"status" validate:"required"`
	AssignedTo *string             `json:"assigned_to"`
	UpdateText string              `json:"update_text"`
}

// ReportDetailResponse bundles a report with its update log.
type ReportDetailResponse struct {
	Report  models.ReportDetail   `json:"report"`
	Updates []models.ReportUpdate `json:"updates"`
}

// ReportService implements report submission, visibility, and the lifecycle
// state machine.
type ReportService struct {
	repo      reportRepository
	users     assigneeResolver
	storage   evidenceStorage
	evidence  *upload.Validator
	validator *validator.Validate
	metrics   reportMetrics
	stats     statsInvalidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportService constructs a ReportService. Metrics and stats are optional;
// nil disables instrumentation and cache invalidation.
func NewReportService(repo reportRepository, users assigneeResolver, store evidenceStorage, evidence *upload.Validator, validate *validator.Validate, metrics reportMetrics, stats statsInvalidator, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if evidence == nil {
		evidence = upload.NewValidator(upload.EvidenceExtensions, upload.DefaultMaxSize, nil)
	}
	return &ReportService{
		repo:      repo,
		users:     users,
		storage:   store,
		evidence:  evidence,
		validator: validate,
		metrics:   metrics,
		stats:     stats,
		logger:    logger,
		now:       time.Now,
	}
}

// Create files a new report for the acting identity. The evidence file is
// optional; when present it passes the validation pipeline before any write.
func (s *ReportService) Create(ctx context.Context, actor *models.JWTClaims, req CreateReportRequest, evidence *upload.File) (*models.Report, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}

	fields := make(map[string]string)

	dateOfCrime, err := time.Parse("2006-01-02", req.DateOfCrime)
	if err != nil {
		fields["date_of_crime"] = "Date of crime must be in YYYY-MM-DD format."
	} else if today := s.now().UTC().Truncate(24 * time.Hour); dateOfCrime.After(today) {
		fields["date_of_crime"] = "Date of crime cannot be in the future."
	}

	if !models.ValidPincode(req.Pincode) {
		fields["pincode"] = "Please enter a valid 6-digit pincode."
	}

	if _, err := s.repo.GetCategory(ctx, req.CategoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			fields["category_id"] = "Unknown crime category."
		} else {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
		}
	}

	if evidence != nil {
		if errs := s.evidence.Validate(*evidence); len(errs) > 0 {
			if s.metrics != nil {
				for _, e := range errs {
					s.metrics.RecordUploadRejection(e.Code)
				}
			}
			if len(fields) == 0 && len(errs) == 1 {
				return nil, errs[0]
			}
			messages := make([]string, 0, len(errs))
			for _, e := range errs {
				messages = append(messages, e.Message)
			}
			fields["evidence_file"] = strings.Join(messages, " ")
		}
	}

	if len(fields) > 0 {
		return nil, appErrors.Validation(fields)
	}

	report := &models.Report{
		Title:       req.Title,
		Description: req.Description,
		DateOfCrime: dateOfCrime,
		TimeOfCrime: req.TimeOfCrime,
		CategoryID:  req.CategoryID,
		ReportedBy:  actor.UserID,
		Status:      models.StatusPending,
	}

	if evidence != nil {
		filename := fmt.Sprintf("%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(evidence.Filename)))
		path, err := s.storage.SaveStream(storage.BucketEvidence, filename, evidence.Content)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store evidence file")
		}
		report.EvidencePath = path
	}

	loc := &models.Location{
		City:    req.City,
		State:   req.State,
		Area:    req.Area,
		Pincode: req.Pincode,
	}
	if err := s.repo.Create(ctx, report, loc); err != nil {
		if report.EvidencePath != "" {
			if delErr := s.storage.Delete(report.EvidencePath); delErr != nil {
				s.logger.Warn("failed to remove orphaned evidence file", zap.String("path", report.EvidencePath), zap.Error(delErr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}

	if s.metrics != nil {
		s.metrics.RecordReportCreated()
	}
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
	return report, nil
}

// Get returns full report details with the update log. Visibility: reporter,
// current assignee, or any police/admin. Every denial surfaces the same
// FORBIDDEN contract.
func (s *ReportService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*ReportDetailResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if !detail.CanViewDetails(actor.UserID, actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have permission to view this report")
	}

	updates, err := s.repo.ListUpdates(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report updates")
	}
	return &ReportDetailResponse{Report: *detail, Updates: updates}, nil
}

// List returns the public report listing. Anonymous callers see resolved
// reports only; authenticated callers see everything matching the filter.
func (s *ReportService) List(ctx context.Context, actor *models.JWTClaims, filter models.ReportFilter) ([]models.ReportDetail, *models.Pagination, error) {
	if actor == nil {
		resolved := models.StatusResolved
		filter.Status = &resolved
	}
	filter.AssignedTo = ""
	filter.ReportedBy = ""
	return s.list(ctx, filter)
}

// Manage returns the staff management listing. Police are scoped to their own
// assignments; admins see everything and may filter by assignee.
func (s *ReportService) Manage(ctx context.Context, actor *models.JWTClaims, filter models.ReportFilter) ([]models.ReportDetail, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RolePolice:
		filter.AssignedTo = actor.UserID
	case models.RoleAdmin:
		// assignee filter honoured as requested
	default:
		return nil, nil, appErrors.ErrForbidden
	}
	return s.list(ctx, filter)
}

func (s *ReportService) list(ctx context.Context, filter models.ReportFilter) ([]models.ReportDetail, *models.Pagination, error) {
	if filter.Status != nil && !models.ValidStatus(*filter.Status) {
		return nil, nil, appErrors.Field("status", "unknown report status")
	}
	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return reports, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// UpdateStatus performs a lifecycle transition. Any police/admin may set any
// status, forward or backward, but entering investigating or resolved
// requires an assignee already set or set in the same request. A rejected
// transition leaves the stored report untouched.
func (s *ReportService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req StatusUpdateRequest) (*models.Report, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RolePolice && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if !models.ValidStatus(req.Status) {
		return nil, appErrors.Field("status", "unknown report status")
	}

	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}

	assignee := report.AssignedTo
	if req.AssignedTo != nil {
		if *req.AssignedTo == "" {
			assignee = nil
		} else {
			assignee = req.AssignedTo
		}
	}

	if assignee != nil {
		profile, err := s.users.GetProfile(ctx, *assignee)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Field("assigned_to", assigneeRoleMessage)
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignee profile")
		}
		if !profile.IsPoliceOrAdmin() {
			return nil, appErrors.Field("assigned_to", assigneeRoleMessage)
		}
	}

	if req.Status.RequiresAssignee() && assignee == nil {
		return nil, appErrors.Field("assigned_to", assigneeRequiredMessage)
	}

	var update *models.ReportUpdate
	if strings.TrimSpace(req.UpdateText) != "" {
		update, err = s.buildUpdate(id, actor.UserID, req.UpdateText)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status, assignee, update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report status")
	}

	if s.metrics != nil {
		s.metrics.RecordStatusChange(string(req.Status))
	}
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}

	report.Status = req.Status
	report.AssignedTo = assignee
	return report, nil
}

// AddUpdate appends a staff note to a report.
func (s *ReportService) AddUpdate(ctx context.Context, actor *models.JWTClaims, reportID, body string) (*models.ReportUpdate, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RolePolice && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	if _, err := s.repo.GetByID(ctx, reportID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}

	update, err := s.buildUpdate(reportID, actor.UserID, body)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AppendUpdate(ctx, update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append update")
	}
	return update, nil
}

func (s *ReportService) buildUpdate(reportID, authorID, body string) (*models.ReportUpdate, error) {
	if len(strings.TrimSpace(body)) < 10 {
		return nil, appErrors.Field("update_text", "Update text must be at least 10 characters long.")
	}
	return &models.ReportUpdate{
		ID:        uuid.NewString(),
		ReportID:  reportID,
		Body:      body,
		UpdatedBy: authorID,
		UpdatedOn: s.now().UTC(),
	}, nil
}

// Categories returns the category lookup table.
func (s *ReportService) Categories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return categories, nil
}

// CreateCategory adds a category. Admin only.
func (s *ReportService) CreateCategory(ctx context.Context, actor *models.JWTClaims, name, description string) (*models.Category, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if strings.TrimSpace(name) == "" {
		return nil, appErrors.Field("name", "Category name is required.")
	}
	category := &models.Category{Name: name, Description: description}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if isUniqueViolation(err) {
			s.logger.Warn("duplicate category", zap.String("name", name), zap.Error(err))
			return nil, appErrors.Clone(appErrors.ErrConflict, "an error occurred, please retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	return category, nil
}
