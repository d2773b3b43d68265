package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/service"
)

// GradeHandler exposes grade level endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// List godoc
// @Summary List grade levels with student counts
// @Tags Grades
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	result, err := h.grades.List(c.Request.Context(), p)
	respondResult(c, http.StatusOK, result, err)
}
