package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cybercell/cybercell-api/internal/models"
)

// ReportRepository persists crime reports, locations, categories and the
// append-only update log.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, title, description, date_of_crime, time_of_crime, location_id, category_id, reported_by, reported_on, status, assigned_to, evidence_path`

const detailSelect = `SELECT r.id, r.title, r.description, r.date_of_crime, r.time_of_crime, r.location_id, r.category_id,
r.reported_by, r.reported_on, r.status, r.assigned_to, r.evidence_path,
c.name AS category_name, l.city, l.state, l.area, l.pincode,
u.username AS reporter_username, a.username AS assignee_username
FROM reports r
JOIN categories c ON c.id = r.category_id
JOIN locations l ON l.id = r.location_id
JOIN users u ON u.id = r.reported_by
LEFT JOIN users a ON a.id = r.assigned_to`

// Create inserts the report together with its deduplicated location in one
// transaction. An identical (city, state, area, pincode) tuple reuses the
// existing row.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report, loc *models.Location) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.ReportedOn.IsZero() {
		report.ReportedOn = time.Now().UTC()
	}
	if report.Status == "" {
		report.Status = models.StatusPending
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin report tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	locationID, err := getOrCreateLocation(ctx, tx, loc)
	if err != nil {
		return err
	}
	report.LocationID = locationID
	loc.ID = locationID

	const query = `INSERT INTO reports (id, title, description, date_of_crime, time_of_crime, location_id, category_id, reported_by, reported_on, status, assigned_to, evidence_path)
VALUES (:id, :title, :description, :date_of_crime, :time_of_crime, :location_id, :category_id, :reported_by, :reported_on, :status, :assigned_to, :evidence_path)`
	if _, err := tx.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report tx: %w", err)
	}
	return nil
}

// getOrCreateLocation upserts on the unique location tuple and returns the id
// of the surviving row.
func getOrCreateLocation(ctx context.Context, tx *sqlx.Tx, loc *models.Location) (string, error) {
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	const query = `INSERT INTO locations (id, city, state, area, pincode) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (city, state, area, pincode) DO UPDATE SET city = EXCLUDED.city
RETURNING id`
	var id string
	if err := tx.GetContext(ctx, &id, query, loc.ID, loc.City, loc.State, loc.Area, loc.Pincode); err != nil {
		return "", fmt.Errorf("get or create location: %w", err)
	}
	return id, nil
}

// GetByID returns a report row by identifier.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	const query = `SELECT ` + reportColumns + ` FROM reports WHERE id = $1 LIMIT 1`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

// GetDetail returns a report with denormalised category, location and user
// references.
func (r *ReportRepository) GetDetail(ctx context.Context, id string) (*models.ReportDetail, error) {
	query := detailSelect + ` WHERE r.id = $1 LIMIT 1`
	var detail models.ReportDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get report detail: %w", err)
	}
	return &detail, nil
}

// List returns reports matching the filter with total count, newest first.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.ReportDetail, int, error) {
	baseQuery := ` FROM reports r
JOIN categories c ON c.id = r.category_id
JOIN locations l ON l.id = r.location_id
JOIN users u ON u.id = r.reported_by
LEFT JOIN users a ON a.id = r.assigned_to
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.CategoryID != "" {
		conditions = append(conditions, fmt.Sprintf("r.category_id = $%d", len(args)+1))
		args = append(args, filter.CategoryID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.City != "" {
		conditions = append(conditions, fmt.Sprintf("l.city ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.City+"%")
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("r.date_of_crime >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("r.date_of_crime <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.AssignedTo != "" {
		conditions = append(conditions, fmt.Sprintf("r.assigned_to = $%d", len(args)+1))
		args = append(args, filter.AssignedTo)
	}
	if filter.ReportedBy != "" {
		conditions = append(conditions, fmt.Sprintf("r.reported_by = $%d", len(args)+1))
		args = append(args, filter.ReportedBy)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT r.id, r.title, r.description, r.date_of_crime, r.time_of_crime, r.location_id, r.category_id,
r.reported_by, r.reported_on, r.status, r.assigned_to, r.evidence_path,
c.name AS category_name, l.city, l.state, l.area, l.pincode,
u.username AS reporter_username, a.username AS assignee_username%s ORDER BY r.reported_on DESC LIMIT %d OFFSET %d`, baseQuery, pageSize, offset)

	var reports []models.ReportDetail
	if err := r.db.SelectContext(ctx, &reports, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	countQuery := "SELECT COUNT(*)" + baseQuery
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	return reports, total, nil
}

// UpdateStatus persists a lifecycle transition and, when update is non-nil,
// appends the staff note in the same transaction. Both writes commit or
// neither does.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, status models.ReportStatus, assignedTo *string, update *models.ReportUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE reports SET status = $2, assigned_to = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, status, assignedTo); err != nil {
		return fmt.Errorf("update report status: %w", err)
	}

	if update != nil {
		if err := insertUpdate(ctx, tx, update); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status tx: %w", err)
	}
	return nil
}

// AppendUpdate inserts a standalone staff note.
func (r *ReportRepository) AppendUpdate(ctx context.Context, update *models.ReportUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := insertUpdate(ctx, tx, update); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update tx: %w", err)
	}
	return nil
}

func insertUpdate(ctx context.Context, tx *sqlx.Tx, update *models.ReportUpdate) error {
	if update.ID == "" {
		update.ID = uuid.NewString()
	}
	if update.UpdatedOn.IsZero() {
		update.UpdatedOn = time.Now().UTC()
	}
	const query = `INSERT INTO report_updates (id, report_id, body, updated_by, updated_on)
VALUES (:id, :report_id, :body, :updated_by, :updated_on)`
	if _, err := tx.NamedExecContext(ctx, query, update); err != nil {
		return fmt.Errorf("append report update: %w", err)
	}
	return nil
}

// ListUpdates returns a report's update log, newest first.
func (r *ReportRepository) ListUpdates(ctx context.Context, reportID string) ([]models.ReportUpdate, error) {
	const query = `SELECT id, report_id, body, updated_by, updated_on FROM report_updates WHERE report_id = $1 ORDER BY updated_on DESC`
	var updates []models.ReportUpdate
	if err := r.db.SelectContext(ctx, &updates, query, reportID); err != nil {
		return nil, fmt.Errorf("list report updates: %w", err)
	}
	return updates, nil
}

// ListCategories returns every category ordered by name.
func (r *ReportRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	const query = `SELECT id, name, description FROM categories ORDER BY name`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns a category by identifier.
func (r *ReportRepository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	const query = `SELECT id, name, description FROM categories WHERE id = $1 LIMIT 1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &category, nil
}

// CreateCategory inserts a new category.
func (r *ReportRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	const query = `INSERT INTO categories (id, name, description) VALUES (:id, :name, :description)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// CountByCategory aggregates report counts per category name.
func (r *ReportRepository) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	const query = `SELECT c.name, COUNT(r.id) AS count FROM categories c
LEFT JOIN reports r ON r.category_id = c.id
GROUP BY c.name ORDER BY c.name`
	var counts []models.CategoryCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	return counts, nil
}

// CountByCity aggregates report counts per city, highest first.
func (r *ReportRepository) CountByCity(ctx context.Context, limit int) ([]models.CityCount, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT l.city, COUNT(r.id) AS count FROM reports r
JOIN locations l ON l.id = r.location_id
GROUP BY l.city ORDER BY count DESC LIMIT $1`
	var counts []models.CityCount
	if err := r.db.SelectContext(ctx, &counts, query, limit); err != nil {
		return nil, fmt.Errorf("count by city: %w", err)
	}
	return counts, nil
}

// CountByStatus aggregates report counts per lifecycle state. Missing states
// are zero-filled by the stats service.
func (r *ReportRepository) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM reports GROUP BY status`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	return counts, nil
}

// CountByMonth aggregates report counts per calendar month of submission
// since the provided cutoff.
func (r *ReportRepository) CountByMonth(ctx context.Context, since time.Time) ([]models.MonthCount, error) {
	const query = `SELECT to_char(reported_on, 'YYYY-MM') AS month, COUNT(*) AS count FROM reports
WHERE reported_on >= $1 GROUP BY month ORDER BY month`
	var counts []models.MonthCount
	if err := r.db.SelectContext(ctx, &counts, query, since); err != nil {
		return nil, fmt.Errorf("count by month: %w", err)
	}
	return counts, nil
}
