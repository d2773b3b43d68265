package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/jobs"
)

const jobTypeSubmissionLog = "submission_log"

type submissionLogRepository interface {
	Create(ctx context.Context, log *models.SubmissionLog) error
	List(ctx context.Context, filter models.SubmissionLogFilter) ([]models.SubmissionLog, int, error)
}

// AuditService records submission attempts in the background.
type AuditService struct {
	repo   submissionLogRepository
	queue  *jobs.Queue
	logger *zap.Logger
}

// AuditConfig tunes the background writer.
type AuditConfig struct {
	Workers int
	Retries int
}

// NewAuditService constructs the service. A nil repo disables auditing.
func NewAuditService(repo submissionLogRepository, cfg AuditConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, logger: logger}
	if repo != nil {
		s.queue = jobs.NewQueue("submission-audit", s.handle, jobs.QueueConfig{
			Workers:    cfg.Workers,
			MaxRetries: cfg.Retries,
			Logger:     logger,
		})
	}
	return s
}

// Enabled reports whether submissions are being recorded.
func (s *AuditService) Enabled() bool {
	return s != nil && s.repo != nil
}

// Start launches the background writer.
func (s *AuditService) Start(ctx context.Context) {
	if s.Enabled() {
		s.queue.Start(ctx)
	}
}

// Stop flushes pending records and stops the writer.
func (s *AuditService) Stop() {
	if s.Enabled() {
		s.queue.Stop()
	}
}

// Record queues one audit row. Failures are logged, never returned, so a
// submission result is not affected by the audit trail.
func (s *AuditService) Record(log models.SubmissionLog) {
	if !s.Enabled() {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{Type: jobTypeSubmissionLog, Payload: log}); err != nil {
		s.logger.Warn("submission audit dropped", zap.String("session_id", log.SessionID), zap.Error(err))
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(models.SubmissionLog)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	return s.repo.Create(ctx, &log)
}

// List returns audit rows for the submissions endpoint.
func (s *AuditService) List(ctx context.Context, filter models.SubmissionLogFilter) ([]models.SubmissionLog, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if !s.Enabled() {
		return []models.SubmissionLog{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
	}
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	if logs == nil {
		logs = []models.SubmissionLog{}
	}
	return logs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}
