package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/service"
)

// AttendanceHandler lists stored attendance records.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// List godoc
// @Summary List stored attendance records
// @Tags Attendance
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param grade_level_id query int true "Grade level"
// @Param search query string false "Student name filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance/records [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	filter := models.AttendanceFilter{
		Date:         c.Query("date"),
		GradeLevelID: queryInt(c, "grade_level_id", 0),
		SearchPhrase: c.Query("search"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", 0),
	}
	result, err := h.attendance.List(c.Request.Context(), p, filter)
	respondResult(c, http.StatusOK, result, err)
}
