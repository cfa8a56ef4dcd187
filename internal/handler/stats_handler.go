package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradtrack/mentor-api/internal/service"
	appErrors "github.com/gradtrack/mentor-api/pkg/errors"
	"github.com/gradtrack/mentor-api/pkg/response"
)

// StatsHandler exposes mentor statistics endpoints.
type StatsHandler struct {
	stats *service.MentorStatsService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(stats *service.MentorStatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Me godoc
// @Summary Get statistics for the logged-in mentor
// @Description Recomputes the mentor's task and topic counters across the given university and returns the stored record.
// @Tags Statistics
// @Produce json
// @Param universityId query string true "University scope"
// @Success 200 {object} response.Envelope
// @Router /stats/me [get]
func (h *StatsHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, err := h.stats.GetLoggedInUserStats(c.Request.Context(), claims.UserID, c.Query("universityId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// ByMentor godoc
// @Summary Get stored statistics for a mentor
// @Description Returns the last computed statistics record without recomputing.
// @Tags Statistics
// @Produce json
// @Param id path string true "Mentor ID"
// @Success 200 {object} response.Envelope
// @Router /stats/mentors/{id} [get]
func (h *StatsHandler) ByMentor(c *gin.Context) {
	stats, err := h.stats.GetStoredStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
