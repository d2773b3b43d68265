package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/normalize"
)

// GradeDirectory lists grade levels with student counts.
type GradeDirectory interface {
	GradeLevels(ctx context.Context, p *models.Principal) (normalize.Result[[]models.GradeLevel], error)
}

const gradeCacheKey = "roster:grades"

// GradeService returns the selectable grades.
type GradeService struct {
	grades GradeDirectory
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewGradeService constructs the service.
func NewGradeService(grades GradeDirectory, cache *CacheService, ttl time.Duration, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{grades: grades, cache: cache, ttl: ttl, logger: logger}
}

// List returns every known grade in order, with counts from the backend
// where it reported them.
func (s *GradeService) List(ctx context.Context, p *models.Principal) (normalize.Result[[]models.GradeLevel], error) {
	return readThrough(ctx, s.cache, gradeCacheKey, s.ttl, func() (normalize.Result[[]models.GradeLevel], error) {
		res, err := s.grades.GradeLevels(ctx, p)
		if err != nil {
			return res, err
		}
		counts := make(map[int]int, len(res.Data))
		for _, g := range res.Data {
			counts[g.ID] = g.StudentCount
		}
		grades := models.GradeLevels()
		for i := range grades {
			grades[i].StudentCount = counts[grades[i].ID]
		}
		res.Data = grades
		return res, nil
	})
}
