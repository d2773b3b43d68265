package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/normalize"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/session"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
)

// AttendanceLister reads stored attendance rows.
type AttendanceLister interface {
	AttendanceList(ctx context.Context, p *models.Principal, f models.AttendanceFilter) (normalize.Result[models.AttendanceRecordPage], error)
}

// AttendanceService lists submitted attendance. Results are cached until the
// next successful submission.
type AttendanceService struct {
	backend AttendanceLister
	cache   *CacheService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(backend AttendanceLister, cache *CacheService, ttl time.Duration, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{backend: backend, cache: cache, ttl: ttl, logger: logger}
}

func attendanceCacheKey(f models.AttendanceFilter) string {
	return fmt.Sprintf("attendance:records:%s:%d:%s:%d:%d", f.Date, f.GradeLevelID, strings.ToLower(f.SearchPhrase), f.Page, f.PageSize)
}

// List returns one page of stored attendance.
func (s *AttendanceService) List(ctx context.Context, p *models.Principal, filter models.AttendanceFilter) (normalize.Result[models.AttendanceRecordPage], error) {
	if filter.Date != "" {
		if _, err := session.ParseDate(filter.Date, time.Local); err != nil {
			return normalize.Result[models.AttendanceRecordPage]{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
		}
	}
	if filter.GradeLevelID != 0 && !models.IsKnownGrade(filter.GradeLevelID) {
		return normalize.Result[models.AttendanceRecordPage]{}, appErrors.Clone(appErrors.ErrValidation, "unknown grade")
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 500 {
		filter.PageSize = 50
	}
	filter.SearchPhrase = strings.TrimSpace(filter.SearchPhrase)

	return readThrough(ctx, s.cache, attendanceCacheKey(filter), s.ttl, func() (normalize.Result[models.AttendanceRecordPage], error) {
		return s.backend.AttendanceList(ctx, p, filter)
	})
}
