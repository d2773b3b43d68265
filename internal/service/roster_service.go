package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/normalize"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/config"
)

// StudentDirectory lists students page by page.
type StudentDirectory interface {
	StudentList(ctx context.Context, p *models.Principal, req models.StudentListRequest) (normalize.Result[models.StudentPage], error)
}

// RosterService assembles the full student list of a grade from the paged
// backend endpoint.
type RosterService struct {
	students StudentDirectory
	cache    *CacheService
	cfg      config.RosterConfig
	logger   *zap.Logger
}

// NewRosterService constructs a roster service.
func NewRosterService(students StudentDirectory, cache *CacheService, cfg config.RosterConfig, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10000
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &RosterService{students: students, cache: cache, cfg: cfg, logger: logger}
}

func rosterCacheKey(gradeID, pageSize int) string {
	return fmt.Sprintf("roster:grade:%d:size:%d", gradeID, pageSize)
}

// Fetch returns every student of gradeID with status present. Page one is
// fetched first; when the total exceeds it the remaining pages are fetched
// concurrently and appended in page order. If any secondary page fails or
// comes back as fallback data, only page one is kept and the roster is
// marked partial.
func (s *RosterService) Fetch(ctx context.Context, p *models.Principal, gradeID, pageSize int) (*models.Roster, error) {
	if pageSize <= 0 {
		pageSize = s.cfg.PageSize
	}
	key := rosterCacheKey(gradeID, pageSize)
	if s.cfg.CacheEnabled {
		var cached models.Roster
		if s.cache.lookup(ctx, key, &cached) {
			return &cached, nil
		}
	}

	first, err := s.students.StudentList(ctx, p, models.StudentListRequest{Page: 1, PageSize: pageSize, GradeLevelID: gradeID})
	if err != nil {
		return nil, err
	}

	roster := &models.Roster{
		GradeID:    gradeID,
		TotalCount: first.Data.TotalCount,
		Pages:      1,
		Source:     first.Source,
	}
	pages := [][]models.RosterEntry{first.Data.Students}

	if first.Source == models.SourceLive {
		if extra := pageCount(first.Data.TotalCount, first.Data.RowCount(), pageSize); extra > 1 {
			rest, err := s.fetchRemaining(ctx, p, gradeID, pageSize, extra)
			if err != nil {
				s.logger.Warn("roster secondary pages failed, keeping first page",
					zap.Int("grade_id", gradeID),
					zap.Int("pages", extra),
					zap.Error(err))
				roster.Partial = true
			} else {
				pages = append(pages, rest...)
				roster.Pages = extra
			}
		}
	}

	roster.Entries = mergeRosterPages(gradeID, pages)

	if s.cfg.CacheEnabled && roster.Source == models.SourceLive && !roster.Partial {
		s.cache.store(ctx, key, roster, s.cfg.CacheTTL)
	}
	return roster, nil
}

func (s *RosterService) fetchRemaining(ctx context.Context, p *models.Principal, gradeID, pageSize, pages int) ([][]models.RosterEntry, error) {
	out := make([][]models.RosterEntry, pages-1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	var mu sync.Mutex

	for page := 2; page <= pages; page++ {
		page := page
		g.Go(func() error {
			start := time.Now()
			res, err := s.students.StudentList(gctx, p, models.StudentListRequest{Page: page, PageSize: pageSize, GradeLevelID: gradeID})
			if err != nil {
				return fmt.Errorf("roster page %d: %w", page, err)
			}
			if res.Source != models.SourceLive {
				return fmt.Errorf("roster page %d: fallback data (%s)", page, res.Reason)
			}
			mu.Lock()
			out[page-2] = res.Data.Students
			mu.Unlock()
			s.logger.Debug("roster page fetched", zap.Int("page", page), zap.Duration("took", time.Since(start)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// pageCount is how many pages total needs. More pages exist only when the
// first page came back full; a short first page is all there is.
func pageCount(total, n, pageSize int) int {
	if n == 0 || total <= n || n < pageSize {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// mergeRosterPages concatenates pages in order, keeps only entries of
// gradeID (0 keeps all), drops repeated ids and defaults everyone to present.
func mergeRosterPages(gradeID int, pages [][]models.RosterEntry) []models.RosterEntry {
	seen := make(map[int64]struct{})
	out := make([]models.RosterEntry, 0)
	for _, page := range pages {
		for _, e := range page {
			if gradeID != 0 && e.GradeLevelID != 0 && e.GradeLevelID != gradeID {
				continue
			}
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			e.AttendanceStatus = models.AttendanceStatusPresent
			out = append(out, e)
		}
	}
	return out
}

// Invalidate drops every cached roster.
func (s *RosterService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, rosterCachePattern)
}
