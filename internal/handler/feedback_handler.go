package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/service"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/response"
)

// FeedbackHandler exposes educator feedback endpoints.
type FeedbackHandler struct {
	feedback *service.FeedbackService
}

// NewFeedbackHandler constructs handler.
func NewFeedbackHandler(feedback *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

// List godoc
// @Summary List feedback
// @Description Parents see feedback for the child selected via X-Selected-Student.
// @Tags Feedback
// @Produce json
// @Param search query string false "Search phrase"
// @Param student_id query int false "Student (staff only)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /feedback [get]
func (h *FeedbackHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	filter := models.FeedbackFilter{
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", 0),
		SearchPhrase: c.Query("search"),
		StudentID:    int64(queryInt(c, "student_id", 0)),
	}
	result, err := h.feedback.List(c.Request.Context(), p, filter)
	respondResult(c, http.StatusOK, result, err)
}

// Create godoc
// @Summary Record feedback for a student
// @Tags Feedback
// @Accept json
// @Produce json
// @Param payload body service.CreateFeedbackRequest true "Feedback payload"
// @Success 201 {object} response.Envelope
// @Router /feedback [post]
func (h *FeedbackHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req service.CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	ack, err := h.feedback.Create(c.Request.Context(), p, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ack)
}
