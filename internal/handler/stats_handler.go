package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cybercell/cybercell-api/internal/service"
	"github.com/cybercell/cybercell-api/pkg/response"
)

// StatsHandler exposes the staff statistics dashboard endpoint.
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler creates a new handler.
func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// CrimeStats godoc
// @Summary Crime statistics
// @Description Aggregates by category, city, status, and month for staff dashboards
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /stats [get]
func (h *StatsHandler) CrimeStats(c *gin.Context) {
	claims := claimsFromContext(c)

	stats, err := h.service.CrimeStats(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}
