package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/normalize"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
)

// FeedbackBackend proxies the feedback endpoints.
type FeedbackBackend interface {
	FeedbackList(ctx context.Context, p *models.Principal, f models.FeedbackFilter) (normalize.Result[models.FeedbackPage], error)
	CreateFeedback(ctx context.Context, p *models.Principal, in models.FeedbackInput) (normalize.Result[models.MutationAck], error)
}

// CreateFeedbackRequest is the validated create payload.
type CreateFeedbackRequest struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	Category  string `json:"category" validate:"omitempty,max=64"`
	Comment   string `json:"comment" validate:"required,min=3,max=2000"`
	Rating    int    `json:"rating" validate:"omitempty,min=1,max=5"`
}

// FeedbackService lists and records educator feedback.
type FeedbackService struct {
	backend   FeedbackBackend
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeedbackService constructs the service.
func NewFeedbackService(backend FeedbackBackend, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{backend: backend, validator: validate, logger: logger}
}

// List returns feedback. Parents only ever see their selected child.
func (s *FeedbackService) List(ctx context.Context, p *models.Principal, filter models.FeedbackFilter) (normalize.Result[models.FeedbackPage], error) {
	if p == nil {
		return normalize.Result[models.FeedbackPage]{}, appErrors.ErrUnauthorized
	}
	if p.Role == models.RoleParent {
		if p.SelectedStudentID == 0 {
			return normalize.Result[models.FeedbackPage]{}, appErrors.Clone(appErrors.ErrForbidden, "select a child first")
		}
		filter.StudentID = p.SelectedStudentID
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	filter.SearchPhrase = strings.TrimSpace(filter.SearchPhrase)
	return s.backend.FeedbackList(ctx, p, filter)
}

// Create validates and forwards a new feedback entry.
func (s *FeedbackService) Create(ctx context.Context, p *models.Principal, req CreateFeedbackRequest) (models.MutationAck, error) {
	req.Comment = strings.TrimSpace(req.Comment)
	req.Category = strings.TrimSpace(req.Category)
	if err := s.validator.Struct(req); err != nil {
		return models.MutationAck{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}
	res, err := s.backend.CreateFeedback(ctx, p, models.FeedbackInput{
		StudentID: req.StudentID,
		Category:  req.Category,
		Comment:   req.Comment,
		Rating:    req.Rating,
	})
	if err != nil {
		return models.MutationAck{}, err
	}
	s.logger.Info("feedback created", zap.Int64("student_id", req.StudentID), zap.Int64("user_id", p.UserID))
	return res.Data, nil
}
