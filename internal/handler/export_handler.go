package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradtrack/mentor-api/internal/models"
	"github.com/gradtrack/mentor-api/internal/service"
	appErrors "github.com/gradtrack/mentor-api/pkg/errors"
	"github.com/gradtrack/mentor-api/pkg/response"
)

// ExportHandler exposes dataset export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Generate godoc
// @Summary Generate an export
// @Description Renders a task or mentor statistics dataset to CSV or PDF and returns a signed download URL.
// @Tags Exports
// @Produce json
// @Param type query string true "Export type (tasks, mentor-stats)"
// @Param format query string true "File format (csv, pdf)"
// @Param mentorId query string false "Mentor scope; defaults to the caller"
// @Success 201 {object} response.Envelope
// @Router /export [post]
func (h *ExportHandler) Generate(c *gin.Context) {
	mentorID := c.Query("mentorId")
	if mentorID == "" {
		if claims := claimsFromContext(c); claims != nil {
			mentorID = claims.UserID
		}
	}

	req := service.ExportRequest{
		Type:     service.ExportType(c.Query("type")),
		Format:   service.ExportFormat(c.Query("format")),
		MentorID: mentorID,
		Filter: models.TaskFilter{
			CourseID:     c.Query("courseId"),
			TermID:       c.Query("termId"),
			UniversityID: c.Query("universityId"),
		},
	}

	result, err := h.exports.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{
		"url":        result.URL,
		"token":      result.Token,
		"format":     result.Format,
		"expires_at": result.ExpiresAt,
	})
}

// Download godoc
// @Summary Download a generated export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Router /export/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.exports.ParseToken(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, http.StatusUnauthorized, "invalid or expired download token"))
		return
	}

	file, err := h.exports.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export file not found"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}
