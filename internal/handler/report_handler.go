package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cybercell/cybercell-api/internal/models"
	"github.com/cybercell/cybercell-api/internal/service"
	appErrors "github.com/cybercell/cybercell-api/pkg/errors"
	"github.com/cybercell/cybercell-api/pkg/response"
	"github.com/cybercell/cybercell-api/pkg/upload"
)

// ReportHandler wires HTTP endpoints to the report service.
type ReportHandler struct {
	service *service.ReportService
	exports *service.ExportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService, exports *service.ExportService) *ReportHandler {
	return &ReportHandler{service: svc, exports: exports}
}

// Create godoc
// @Summary File a crime report
// @Description Submit a report with an optional evidence attachment
// @Tags Reports
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param date_of_crime formData string true "Date of crime (YYYY-MM-DD)"
// @Param time_of_crime formData string false "Time of crime"
// @Param category_id formData string true "Category ID"
// @Param city formData string true "City"
// @Param state formData string true "State"
// @Param area formData string true "Area"
// @Param pincode formData string true "6-digit pincode"
// @Param evidence_file formData file false "Evidence attachment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)

	req := service.CreateReportRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		DateOfCrime: c.PostForm("date_of_crime"),
		CategoryID:  c.PostForm("category_id"),
		City:        c.PostForm("city"),
		State:       c.PostForm("state"),
		Area:        c.PostForm("area"),
		Pincode:     c.PostForm("pincode"),
	}
	if t := c.PostForm("time_of_crime"); t != "" {
		req.TimeOfCrime = &t
	}

	var evidence *upload.File
	if fileHeader, err := c.FormFile("evidence_file"); err == nil {
		content, err := fileHeader.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read uploaded file"))
			return
		}
		defer content.Close()
		evidence = &upload.File{
			Filename: fileHeader.Filename,
			Size:     fileHeader.Size,
			MimeType: fileHeader.Header.Get("Content-Type"),
			Content:  content,
		}
	}

	report, err := h.service.Create(c.Request.Context(), claims, req, evidence)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, report)
}

// Get godoc
// @Summary Get report details
// @Description Full report with update log; visible to the reporter, the assignee, and staff
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)

	detail, err := h.service.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// List godoc
// @Summary List reports
// @Description Public listing; anonymous callers see resolved reports only
// @Tags Reports
// @Produce json
// @Param category_id query string false "Filter by category"
// @Param status query string false "Filter by status"
// @Param city query string false "Filter by city"
// @Param date_from query string false "Filter from date (YYYY-MM-DD)"
// @Param date_to query string false "Filter to date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)

	filter, ferr := reportFilterFromQuery(c)
	if ferr != nil {
		response.Error(c, ferr)
		return
	}

	reports, pagination, err := h.service.List(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reports, pagination)
}

// Manage godoc
// @Summary Staff report listing
// @Description Police see their own assignments; admins see all and may filter by assignee
// @Tags Reports
// @Produce json
// @Param status query string false "Filter by status"
// @Param assigned_to query string false "Filter by assignee (admin only)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports/manage [get]
func (h *ReportHandler) Manage(c *gin.Context) {
	claims := claimsFromContext(c)

	filter, ferr := reportFilterFromQuery(c)
	if ferr != nil {
		response.Error(c, ferr)
		return
	}
	filter.AssignedTo = c.Query("assigned_to")

	reports, pagination, err := h.service.Manage(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reports, pagination)
}

// UpdateStatus godoc
// @Summary Update report status
// @Description Lifecycle transition with optional reassignment and staff note
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body service.StatusUpdateRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id}/status [put]
func (h *ReportHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)

	var req service.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	report, err := h.service.UpdateStatus(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report, nil)
}

// AddUpdate godoc
// @Summary Append a case update
// @Description Staff note on a report, at least 10 characters
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body object true "Update payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports/{id}/updates [post]
func (h *ReportHandler) AddUpdate(c *gin.Context) {
	claims := claimsFromContext(c)

	var payload struct {
		UpdateText string `json:"update_text"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	update, err := h.service.AddUpdate(c.Request.Context(), claims, c.Param("id"), payload.UpdateText)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, update)
}

// Categories godoc
// @Summary List crime categories
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *ReportHandler) Categories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, categories, nil)
}

// CreateCategory godoc
// @Summary Create a crime category
// @Tags Categories
// @Accept json
// @Produce json
// @Param payload body models.Category true "Category payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /categories [post]
func (h *ReportHandler) CreateCategory(c *gin.Context) {
	claims := claimsFromContext(c)

	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}

	category, err := h.service.CreateCategory(c.Request.Context(), claims, payload.Name, payload.Description)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, category)
}

// ExportPDF godoc
// @Summary Export a report as PDF
// @Description Printable case file with the update log
// @Tags Reports
// @Produce application/pdf
// @Param id path string true "Report ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id}/export [get]
func (h *ReportHandler) ExportPDF(c *gin.Context) {
	claims := claimsFromContext(c)

	content, filename, err := h.exports.CaseFilePDF(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", content)
}

// ExportCSV godoc
// @Summary Export the management listing as CSV
// @Tags Reports
// @Produce text/csv
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /reports/manage/export [get]
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	claims := claimsFromContext(c)

	filter, ferr := reportFilterFromQuery(c)
	if ferr != nil {
		response.Error(c, ferr)
		return
	}
	filter.AssignedTo = c.Query("assigned_to")

	content, filename, err := h.exports.ManageCSV(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", content)
}

func reportFilterFromQuery(c *gin.Context) (models.ReportFilter, *appErrors.Error) {
	filter := models.ReportFilter{
		CategoryID: c.Query("category_id"),
		City:       c.Query("city"),
	}
	if status := c.Query("status"); status != "" {
		s := models.ReportStatus(status)
		filter.Status = &s
	}
	if from := c.Query("date_from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return filter, appErrors.Field("date_from", "date_from must be in YYYY-MM-DD format")
		}
		filter.DateFrom = &t
	}
	if to := c.Query("date_to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return filter, appErrors.Field("date_to", "date_to must be in YYYY-MM-DD format")
		}
		filter.DateTo = &t
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return filter, nil
}
