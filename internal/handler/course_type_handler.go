package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradtrack/mentor-api/internal/service"
	appErrors "github.com/gradtrack/mentor-api/pkg/errors"
	"github.com/gradtrack/mentor-api/pkg/response"
)

// CourseTypeHandler exposes the course type lookup endpoints.
type CourseTypeHandler struct {
	courseTypes *service.CourseTypeService
}

// NewCourseTypeHandler constructs CourseTypeHandler.
func NewCourseTypeHandler(courseTypes *service.CourseTypeService) *CourseTypeHandler {
	return &CourseTypeHandler{courseTypes: courseTypes}
}

// List godoc
// @Summary List course types
// @Tags CourseTypes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /course-types [get]
func (h *CourseTypeHandler) List(c *gin.Context) {
	types, err := h.courseTypes.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Get godoc
// @Summary Get course type detail
// @Tags CourseTypes
// @Produce json
// @Param id path string true "Course type ID"
// @Success 200 {object} response.Envelope
// @Router /course-types/{id} [get]
func (h *CourseTypeHandler) Get(c *gin.Context) {
	courseType, err := h.courseTypes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courseType, nil)
}

// Create godoc
// @Summary Create course type
// @Tags CourseTypes
// @Accept json
// @Produce json
// @Param payload body service.CourseTypeRequest true "Course type payload"
// @Success 201 {object} response.Envelope
// @Router /course-types [post]
func (h *CourseTypeHandler) Create(c *gin.Context) {
	var req service.CourseTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	courseType, err := h.courseTypes.Create(c.Request.Context(), req, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, courseType)
}

// Update godoc
// @Summary Update course type
// @Tags CourseTypes
// @Accept json
// @Produce json
// @Param id path string true "Course type ID"
// @Param payload body service.CourseTypeRequest true "Course type payload"
// @Success 200 {object} response.Envelope
// @Router /course-types/{id} [put]
func (h *CourseTypeHandler) Update(c *gin.Context) {
	var req service.CourseTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	courseType, err := h.courseTypes.Update(c.Request.Context(), c.Param("id"), req, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courseType, nil)
}

// Delete godoc
// @Summary Deactivate course type
// @Tags CourseTypes
// @Produce json
// @Param id path string true "Course type ID"
// @Success 204
// @Router /course-types/{id} [delete]
func (h *CourseTypeHandler) Delete(c *gin.Context) {
	if err := h.courseTypes.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
