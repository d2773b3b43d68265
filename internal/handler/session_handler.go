package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/dto"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/middleware"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/service"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/session"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/response"
)

// SessionHandler exposes attendance session endpoints.
type SessionHandler struct {
	sessions *service.SessionService
	validate *validator.Validate
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions *service.SessionService, validate *validator.Validate) *SessionHandler {
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &SessionHandler{sessions: sessions, validate: validate}
}

func (h *SessionHandler) respond(c *gin.Context, status int, sess *session.Session, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	view := sess.View()
	middleware.SetDataSource(c, view.RosterSource, "")
	meta := middleware.ExtractMeta(c)
	if view.RosterPartial {
		meta["partial"] = true
	}
	response.JSON(c, status, view, nil, meta)
}

// Open godoc
// @Summary Open an attendance session
// @Tags Attendance Sessions
// @Accept json
// @Produce json
// @Param payload body dto.OpenSessionRequest false "Initial date and grade"
// @Success 201 {object} response.Envelope
// @Router /attendance/sessions [post]
func (h *SessionHandler) Open(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.OpenSessionRequest
	if c.Request.ContentLength != 0 && !bind(c, h.validate, &req) {
		return
	}
	sess, err := h.sessions.Open(c.Request.Context(), p, req.Date, req.GradeID)
	h.respond(c, http.StatusCreated, sess, err)
}

// Get godoc
// @Summary Get an attendance session
// @Tags Attendance Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	sess, err := h.sessions.Get(c.Request.Context(), p, c.Param("id"))
	h.respond(c, http.StatusOK, sess, err)
}

// Close godoc
// @Summary Discard an attendance session
// @Tags Attendance Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /attendance/sessions/{id} [delete]
func (h *SessionHandler) Close(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.sessions.Close(c.Request.Context(), p, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetDate godoc
// @Summary Change the attendance date
// @Tags Attendance Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SetDateRequest true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id}/date [put]
func (h *SessionHandler) SetDate(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.SetDateRequest
	if !bind(c, h.validate, &req) {
		return
	}
	sess, err := h.sessions.SetDate(c.Request.Context(), p, c.Param("id"), req.Date)
	h.respond(c, http.StatusOK, sess, err)
}

// SelectGrade godoc
// @Summary Select a grade and load its roster
// @Tags Attendance Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SelectGradeRequest true "Grade"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id}/grade [put]
func (h *SessionHandler) SelectGrade(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.SelectGradeRequest
	if !bind(c, h.validate, &req) {
		return
	}
	sess, err := h.sessions.SelectGrade(c.Request.Context(), p, c.Param("id"), req.GradeID)
	h.respond(c, http.StatusOK, sess, err)
}

// Search godoc
// @Summary Filter the roster by name or admission number
// @Tags Attendance Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SearchRequest true "Query"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id}/search [put]
func (h *SessionHandler) Search(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.SearchRequest
	if !bind(c, h.validate, &req) {
		return
	}
	sess, err := h.sessions.Search(c.Request.Context(), p, c.Param("id"), req.Query)
	h.respond(c, http.StatusOK, sess, err)
}

// SetStatus godoc
// @Summary Set one student's status
// @Description Late opens the detail editor instead of committing.
// @Tags Attendance Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param studentId path int true "Student ID"
// @Param payload body dto.SetStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id}/students/{studentId}/status [put]
func (h *SessionHandler) SetStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	studentID, ok := int64Param(c, "studentId")
	if !ok {
		return
	}
	var req dto.SetStatusRequest
	if !bind(c, h.validate, &req) {
		return
	}
	sess, err := h.sessions.SetStatus(c.Request.Context(), p, c.Param("id"), studentID, models.ParseAttendanceStatus(req.Status))
	h.respond(c, http.StatusOK, sess, err)
}

// OpenEditor godoc
// @Summary Open the attendance detail editor
// @Tags Attendance Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.OpenEditorRequest true "Student and target status"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id}/editor [post]
func (h *SessionHandler) OpenEditor(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.OpenEditorRequest
	if !bind(c, h.validate, &req) {
		return
	}
	sess, err := h.sessions.OpenEditor(c.Request.Context(), p, c.Param("id"), req.StudentID, models.ParseAttendanceStatus(req.Status))
	h.respond(c, http.StatusOK, sess, err)
}

// ConfirmEditor godoc
// @Summary Confirm the attendance detail editor
// @Tags Attendance Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.ConfirmEditorRequest true "Reason, notes and times"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id}/editor [put]
func (h *SessionHandler) ConfirmEditor(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.ConfirmEditorRequest
	if !bind(c, h.validate, &req) {
		return
	}
	sess, err := h.sessions.ConfirmEditor(c.Request.Context(), p, c.Param("id"), req.Detail())
	h.respond(c, http.StatusOK, sess, err)
}

// CancelEditor godoc
// @Summary Cancel the attendance detail editor
// @Tags Attendance Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id}/editor [delete]
func (h *SessionHandler) CancelEditor(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	sess, err := h.sessions.CancelEditor(c.Request.Context(), p, c.Param("id"))
	h.respond(c, http.StatusOK, sess, err)
}

// ApplyBulk godoc
// @Summary Apply a bulk action to the whole roster
// @Tags Attendance Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.BulkRequest true "Action and confirmation"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /attendance/sessions/{id}/bulk [post]
func (h *SessionHandler) ApplyBulk(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.BulkRequest
	if !bind(c, h.validate, &req) {
		return
	}
	sess, err := h.sessions.ApplyBulk(c.Request.Context(), p, c.Param("id"), session.BulkAction(req.Action), req.Confirmed)
	h.respond(c, http.StatusOK, sess, err)
}

// Validate godoc
// @Summary List what blocks submission
// @Tags Attendance Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id}/validation [get]
func (h *SessionHandler) Validate(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	violations, err := h.sessions.Validate(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"valid": len(violations) == 0, "violations": violations}, nil)
}

// Submit godoc
// @Summary Submit the session as one attendance batch
// @Tags Attendance Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /attendance/sessions/{id}/submit [post]
func (h *SessionHandler) Submit(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	result, err := h.sessions.Submit(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Summary godoc
// @Summary Attendance summary for charting
// @Tags Attendance Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id}/summary [get]
func (h *SessionHandler) Summary(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	summary, err := h.sessions.Summary(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Export the session roster
// @Tags Attendance Sessions
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Session ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /attendance/sessions/{id}/export [get]
func (h *SessionHandler) Export(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	file, err := h.sessions.Export(c.Request.Context(), p, c.Param("id"), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
