package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/normalize"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// Cached keyspaces. A successful submission clears both. Sessions stored in
// Redis use session:attendance: and are not matched.
const (
	rosterCachePattern     = "roster:*"
	attendanceCachePattern = "attendance:*"
)

// CacheService is a read-through cache in front of backend reads. Only live
// payloads are stored.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service. A nil repo or enabled=false
// turns every call into a miss.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// lookup decodes key into dest and reports a hit. Repository errors are
// logged and count as misses.
func (s *CacheService) lookup(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

func (s *CacheService) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes every key matching any of patterns. All patterns are
// tried; failures are joined.
func (s *CacheService) Invalidate(ctx context.Context, patterns ...string) error {
	if !s.Enabled() {
		return nil
	}
	var errs []error
	for _, pattern := range patterns {
		if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// readThrough serves key from the cache or calls load. Results are stored
// only when they came from the live backend.
func readThrough[T any](ctx context.Context, s *CacheService, key string, ttl time.Duration, load func() (normalize.Result[T], error)) (normalize.Result[T], error) {
	var cached T
	if s.lookup(ctx, key, &cached) {
		return normalize.Result[T]{Status: "successful", Data: cached, Source: models.SourceLive}, nil
	}
	res, err := load()
	if err != nil {
		return res, err
	}
	if res.Source == models.SourceLive {
		s.store(ctx, key, res.Data, ttl)
	}
	return res, nil
}
