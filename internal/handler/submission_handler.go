package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/service"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/response"
)

// SubmissionHandler lists the submission audit trail.
type SubmissionHandler struct {
	audit *service.AuditService
}

// NewSubmissionHandler constructs handler.
func NewSubmissionHandler(audit *service.AuditService) *SubmissionHandler {
	return &SubmissionHandler{audit: audit}
}

// List godoc
// @Summary List attendance submission attempts
// @Tags Submissions
// @Produce json
// @Param grade_level_id query int false "Grade level"
// @Param user_id query int false "Submitting user"
// @Param outcome query string false "succeeded or rejected"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	filter := models.SubmissionLogFilter{
		GradeLevelID: queryInt(c, "grade_level_id", 0),
		UserID:       int64(queryInt(c, "user_id", 0)),
		Outcome:      models.SubmissionOutcome(c.Query("outcome")),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", 20),
	}
	logs, pagination, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}
