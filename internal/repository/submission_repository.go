package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
)

// SchemaSubmissionLogs creates the audit table when missing.
const SchemaSubmissionLogs = `CREATE TABLE IF NOT EXISTS attendance_submission_logs (
	id UUID PRIMARY KEY,
	session_id TEXT NOT NULL,
	user_id BIGINT NOT NULL,
	grade_level_id INT NOT NULL,
	attendance_date DATE NOT NULL,
	total INT NOT NULL,
	present INT NOT NULL,
	absent INT NOT NULL,
	late INT NOT NULL,
	outcome TEXT NOT NULL,
	message TEXT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// QueryObserver receives the duration of each labelled query.
type QueryObserver func(label string, duration time.Duration)

// SubmissionOption customises a SubmissionRepository.
type SubmissionOption func(*SubmissionRepository)

// WithQueryObserver times every query.
func WithQueryObserver(observe QueryObserver) SubmissionOption {
	return func(r *SubmissionRepository) { r.observe = observe }
}

// SubmissionRepository persists the attendance submission audit trail.
type SubmissionRepository struct {
	db      *sqlx.DB
	observe QueryObserver
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB, opts ...SubmissionOption) *SubmissionRepository {
	r := &SubmissionRepository{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SubmissionRepository) timed(label string) func() {
	if r.observe == nil {
		return func() {}
	}
	start := time.Now()
	return func() { r.observe(label, time.Since(start)) }
}

// EnsureSchema creates the audit table.
func (r *SubmissionRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, SchemaSubmissionLogs); err != nil {
		return fmt.Errorf("ensure submission log schema: %w", err)
	}
	return nil
}

// Create inserts one audit row.
func (r *SubmissionRepository) Create(ctx context.Context, log *models.SubmissionLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_submission_logs
	(id, session_id, user_id, grade_level_id, attendance_date, total, present, absent, late, outcome, message, created_at)
	VALUES (:id, :session_id, :user_id, :grade_level_id, :attendance_date, :total, :present, :absent, :late, :outcome, :message, :created_at)`
	defer r.timed("submission_logs.create")()
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create submission log: %w", err)
	}
	return nil
}

// List returns audit rows matching the filter, newest first, plus the total.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionLogFilter) ([]models.SubmissionLog, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)
	if filter.GradeLevelID > 0 {
		args = append(args, filter.GradeLevelID)
		conditions = append(conditions, fmt.Sprintf("grade_level_id = $%d", len(args)))
	}
	if filter.UserID > 0 {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Outcome != "" {
		args = append(args, filter.Outcome)
		conditions = append(conditions, fmt.Sprintf("outcome = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	defer r.timed("submission_logs.list")()

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM attendance_submission_logs"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count submission logs: %w", err)
	}

	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf(`SELECT id, session_id, user_id, grade_level_id, to_char(attendance_date, 'YYYY-MM-DD') AS attendance_date,
       total, present, absent, late, outcome, message, created_at
	FROM attendance_submission_logs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	var logs []models.SubmissionLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list submission logs: %w", err)
	}
	return logs, total, nil
}
