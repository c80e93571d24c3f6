package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybercell/cybercell-api/internal/models"
)

func TestCreateReportReusesExistingLocation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO locations").
		WithArgs(sqlmock.AnyArg(), "Pune", "Maharashtra", "Kothrud", "411038").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-loc"))
	mock.ExpectExec("INSERT INTO reports").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	report := &models.Report{
		Title:       "Stolen bicycle",
		Description: "Bicycle stolen from parking lot",
		DateOfCrime: time.Now().AddDate(0, 0, -1),
		CategoryID:  "cat1",
		ReportedBy:  "u1",
		Status:      models.StatusPending,
	}
	loc := &models.Location{City: "Pune", State: "Maharashtra", Area: "Kothrud", Pincode: "411038"}

	err := repo.Create(context.Background(), report, loc)
	require.NoError(t, err)
	assert.Equal(t, "existing-loc", report.LocationID)
	assert.Equal(t, "existing-loc", loc.ID)
	assert.NotEmpty(t, report.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReportRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO locations").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("loc1"))
	mock.ExpectExec("INSERT INTO reports").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Report{Title: "x"}, &models.Location{City: "Pune"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusWithNote(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	assignee := "officer1"
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reports SET status = $2, assigned_to = $3 WHERE id = $1")).
		WithArgs("r1", models.StatusInvestigating, assignee).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO report_updates").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	update := &models.ReportUpdate{ReportID: "r1", Body: "Investigation started", UpdatedBy: "officer1"}
	err := repo.UpdateStatus(context.Background(), "r1", models.StatusInvestigating, &assignee, update)
	require.NoError(t, err)
	assert.NotEmpty(t, update.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusRollsBackWhenNoteFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE reports SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO report_updates").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	update := &models.ReportUpdate{ReportID: "r1", Body: "note", UpdatedBy: "o1"}
	err := repo.UpdateStatus(context.Background(), "r1", models.StatusResolved, nil, update)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListReportsFiltersByStatusAndCity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	now := time.Now()
	status := models.StatusResolved
	listRows := sqlmock.NewRows([]string{
		"id", "title", "description", "date_of_crime", "time_of_crime", "location_id", "category_id",
		"reported_by", "reported_on", "status", "assigned_to", "evidence_path",
		"category_name", "city", "state", "area", "pincode", "reporter_username", "assignee_username",
	}).AddRow("r1", "Stolen bicycle", "desc", now, nil, "l1", "c1", "u1", now, string(status), nil, "",
		"Theft", "Pune", "Maharashtra", "Kothrud", "411038", "jdoe", nil)
	mock.ExpectQuery("SELECT r.id, r.title").WithArgs(status, "%Pune%").WillReturnRows(listRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).WithArgs(status, "%Pune%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	reports, total, err := repo.List(context.Background(), models.ReportFilter{Status: &status, City: "Pune"})
	require.NoError(t, err)
	assert.Len(t, reports, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Theft", reports[0].CategoryName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByMonth(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	since := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"month", "count"}).
		AddRow("2025-10", 3).
		AddRow("2025-12", 1)
	mock.ExpectQuery("SELECT to_char").WithArgs(since).WillReturnRows(rows)

	counts, err := repo.CountByMonth(context.Background(), since)
	require.NoError(t, err)
	assert.Len(t, counts, 2)
	assert.Equal(t, "2025-10", counts[0].Month)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCategoryNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery("SELECT id, name, description FROM categories").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}))

	_, err := repo.GetCategory(context.Background(), "missing")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
