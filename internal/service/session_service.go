package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/normalize"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/session"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/export"
)

// SessionStore persists attendance sessions between requests.
type SessionStore interface {
	Get(ctx context.Context, id string) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) error
	Delete(ctx context.Context, id string) error
}

// RosterFetcher loads the full roster of a grade.
type RosterFetcher interface {
	Fetch(ctx context.Context, p *models.Principal, gradeID, pageSize int) (*models.Roster, error)
}

// AttendanceSubmitter sends a batch to the backend.
type AttendanceSubmitter interface {
	CreateAttendance(ctx context.Context, p *models.Principal, records []models.AttendanceBatchRecord) (normalize.Result[models.MutationAck], error)
}

// SessionServiceConfig tunes session behaviour.
type SessionServiceConfig struct {
	WindowDays     int
	RosterPageSize int
}

// SubmitResult is returned after a successful submission.
type SubmitResult struct {
	SessionID string                   `json:"session_id"`
	Submitted int                      `json:"submitted"`
	Message   string                   `json:"message"`
	Summary   models.AttendanceSummary `json:"summary"`
}

// ExportFile is a rendered session export.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"

	defaultSubmitMessage = "Attendance submitted successfully"
)

// SessionService drives attendance sessions: selection, roster loading,
// edits, validation and submission.
type SessionService struct {
	store     SessionStore
	rosters   RosterFetcher
	submitter AttendanceSubmitter
	cache     *CacheService
	audit     *AuditService
	metrics   *MetricsService
	csv       csvRenderer
	pdf       pdfRenderer
	cfg       SessionServiceConfig
	logger    *zap.Logger
	now       func() time.Time

	locks sync.Map
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// NewSessionService constructs the service.
func NewSessionService(store SessionStore, rosters RosterFetcher, submitter AttendanceSubmitter, cache *CacheService, audit *AuditService, metrics *MetricsService, cfg SessionServiceConfig, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = session.DefaultWindowDays
	}
	return &SessionService{
		store:     store,
		rosters:   rosters,
		submitter: submitter,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       &export.PDFExporter{Widths: map[string]float64{"Name": 55, "Status": 20, "In": 15, "Out": 15}},
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *SessionService) lock(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *SessionService) load(ctx context.Context, p *models.Principal, id string) (*session.Session, error) {
	if p == nil {
		return nil, appErrors.ErrUnauthorized
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			s.locks.Delete(id)
		}
		return nil, err
	}
	if sess.OwnerID != p.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "attendance session belongs to another user")
	}
	return sess, nil
}

// mutate applies fn to a copy of the session and saves it only when fn
// succeeds, so a rejected transition leaves the stored state untouched.
func (s *SessionService) mutate(ctx context.Context, p *models.Principal, id string, fn func(*session.Session) error) (*session.Session, error) {
	unlock := s.lock(id)
	defer unlock()

	current, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	if err := s.store.Save(ctx, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance session")
	}
	return next, nil
}

// Open starts a session for p. date and gradeID are optional.
func (s *SessionService) Open(ctx context.Context, p *models.Principal, date string, gradeID int) (*session.Session, error) {
	if p == nil {
		return nil, appErrors.ErrUnauthorized
	}
	now := s.now()
	sess := session.New(uuid.NewString(), p.UserID, now, s.cfg.WindowDays)
	if strings.TrimSpace(date) != "" {
		if err := sess.SetDate(date, now); err != nil {
			return nil, err
		}
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open attendance session")
	}
	s.metrics.SessionOpened()
	s.logger.Info("attendance session opened", zap.String("session_id", sess.ID), zap.Int64("user_id", p.UserID))

	if gradeID > 0 {
		return s.SelectGrade(ctx, p, sess.ID, gradeID)
	}
	return sess, nil
}

// Get returns the session.
func (s *SessionService) Get(ctx context.Context, p *models.Principal, id string) (*session.Session, error) {
	return s.load(ctx, p, id)
}

// SetDate changes the attendance date.
func (s *SessionService) SetDate(ctx context.Context, p *models.Principal, id, date string) (*session.Session, error) {
	return s.mutate(ctx, p, id, func(sess *session.Session) error {
		return sess.SetDate(date, s.now())
	})
}

// SelectGrade switches grade and loads its roster. The fetch runs without
// holding the session lock; if another selection started meanwhile, this
// result is discarded and the newer state is returned.
func (s *SessionService) SelectGrade(ctx context.Context, p *models.Principal, id string, gradeID int) (*session.Session, error) {
	var tag session.FetchTag
	if _, err := s.mutate(ctx, p, id, func(sess *session.Session) error {
		var err error
		tag, err = sess.BeginGradeSelection(gradeID)
		return err
	}); err != nil {
		return nil, err
	}

	roster, fetchErr := s.rosters.Fetch(ctx, p, gradeID, s.cfg.RosterPageSize)

	var stale bool
	sess, err := s.mutate(ctx, p, id, func(sess *session.Session) error {
		if fetchErr != nil {
			stale = !sess.FailRosterFetch(tag, fetchErr)
			return nil
		}
		stale = !sess.ApplyRoster(tag, roster)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stale {
		s.logger.Debug("stale roster discarded", zap.String("session_id", id), zap.Int("grade_id", gradeID), zap.Uint64("seq", tag.Seq))
		return sess, nil
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if roster.Partial {
		s.logger.Warn("roster loaded partially", zap.String("session_id", id), zap.Int("grade_id", gradeID), zap.Int("entries", len(roster.Entries)))
	}
	return sess, nil
}

// Search updates the roster filter.
func (s *SessionService) Search(ctx context.Context, p *models.Principal, id, query string) (*session.Session, error) {
	return s.mutate(ctx, p, id, func(sess *session.Session) error {
		sess.SetSearch(query)
		return nil
	})
}

// SetStatus changes one student's status. Late opens the detail editor.
func (s *SessionService) SetStatus(ctx context.Context, p *models.Principal, id string, studentID int64, status models.AttendanceStatus) (*session.Session, error) {
	return s.mutate(ctx, p, id, func(sess *session.Session) error {
		_, err := sess.SetStatus(studentID, status)
		return err
	})
}

// OpenEditor opens the detail editor for a student.
func (s *SessionService) OpenEditor(ctx context.Context, p *models.Principal, id string, studentID int64, target models.AttendanceStatus) (*session.Session, error) {
	return s.mutate(ctx, p, id, func(sess *session.Session) error {
		return sess.OpenEditor(studentID, target)
	})
}

// ConfirmEditor commits the editor. When the detail is invalid the draft is
// kept so the user can correct it.
func (s *SessionService) ConfirmEditor(ctx context.Context, p *models.Principal, id string, detail models.AttendanceDetail) (*session.Session, error) {
	var confirmErr error
	sess, err := s.mutate(ctx, p, id, func(sess *session.Session) error {
		confirmErr = sess.ConfirmEditor(detail)
		if confirmErr != nil && sess.Editor == nil {
			return confirmErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if confirmErr != nil {
		return sess, confirmErr
	}
	return sess, nil
}

// CancelEditor closes the editor without changes.
func (s *SessionService) CancelEditor(ctx context.Context, p *models.Principal, id string) (*session.Session, error) {
	return s.mutate(ctx, p, id, func(sess *session.Session) error {
		return sess.CancelEditor()
	})
}

// ApplyBulk runs a bulk action. confirmed must be true.
func (s *SessionService) ApplyBulk(ctx context.Context, p *models.Principal, id string, action session.BulkAction, confirmed bool) (*session.Session, error) {
	return s.mutate(ctx, p, id, func(sess *session.Session) error {
		return sess.ApplyBulk(action, confirmed)
	})
}

// Validate lists everything blocking submission.
func (s *SessionService) Validate(ctx context.Context, p *models.Principal, id string) ([]session.Violation, error) {
	sess, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	violations := sess.Validate(s.now())
	if violations == nil {
		violations = []session.Violation{}
	}
	return violations, nil
}

// Summary aggregates the session roster.
func (s *SessionService) Summary(ctx context.Context, p *models.Principal, id string) (models.AttendanceSummary, error) {
	sess, err := s.load(ctx, p, id)
	if err != nil {
		return models.AttendanceSummary{}, err
	}
	return sess.Summary(), nil
}

// Submit validates the session and sends the whole roster as one batch. On
// success the session is closed and cached rosters and attendance lists are
// invalidated. On failure the session is kept as it was, with LastError set.
func (s *SessionService) Submit(ctx context.Context, p *models.Principal, id string) (*SubmitResult, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if violations := sess.Validate(s.now()); len(violations) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "attendance cannot be submitted yet", violations)
	}

	batch := sess.BuildBatch()
	summary := sess.Summary()
	res, err := s.submitter.CreateAttendance(ctx, p, batch)
	if err != nil {
		message := "failed to submit attendance"
		if appErr := appErrors.FromError(err); appErr.Code != appErrors.ErrInternal.Code {
			message = appErr.Message
		}
		failed := sess.Clone()
		failed.LastError = message
		failed.UpdatedAt = s.now()
		if saveErr := s.store.Save(ctx, failed); saveErr != nil {
			s.logger.Error("failed to keep session after rejected submission", zap.String("session_id", id), zap.Error(saveErr))
		}
		s.recordSubmission(sess, p, summary, models.SubmissionRejected, message)
		s.logger.Warn("attendance submission rejected", zap.String("session_id", id), zap.String("message", message))
		return nil, err
	}

	message := strings.TrimSpace(res.Data.Message)
	if message == "" {
		message = defaultSubmitMessage
	}
	if err := s.cache.Invalidate(ctx, rosterCachePattern, attendanceCachePattern); err != nil {
		s.logger.Warn("cache invalidation after submit incomplete", zap.String("session_id", id), zap.Error(err))
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Warn("failed to delete submitted session", zap.String("session_id", id), zap.Error(err))
	}
	s.locks.Delete(id)
	s.metrics.SessionClosed()
	s.recordSubmission(sess, p, summary, models.SubmissionSucceeded, message)
	s.logger.Info("attendance submitted",
		zap.String("session_id", id),
		zap.Int("grade_id", sess.Selection.GradeID),
		zap.String("date", sess.Selection.Date),
		zap.Int("records", len(batch)))

	return &SubmitResult{SessionID: id, Submitted: len(batch), Message: message, Summary: summary}, nil
}

func (s *SessionService) recordSubmission(sess *session.Session, p *models.Principal, sum models.AttendanceSummary, outcome models.SubmissionOutcome, message string) {
	s.metrics.RecordSubmission(outcome)
	msg := message
	s.audit.Record(models.SubmissionLog{
		SessionID:    sess.ID,
		UserID:       p.UserID,
		GradeLevelID: sess.Selection.GradeID,
		Date:         sess.Selection.Date,
		Total:        sum.Total,
		Present:      sum.Present,
		Absent:       sum.Absent,
		Late:         sum.Late,
		Outcome:      outcome,
		Message:      &msg,
	})
}

// Close discards a session without submitting.
func (s *SessionService) Close(ctx context.Context, p *models.Principal, id string) error {
	unlock := s.lock(id)
	defer unlock()
	if _, err := s.load(ctx, p, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close attendance session")
	}
	s.locks.Delete(id)
	s.metrics.SessionClosed()
	return nil
}

// Export renders the session roster with its summary.
func (s *SessionService) Export(ctx context.Context, p *models.Principal, id, format string) (*ExportFile, error) {
	sess, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	data := sessionDataset(sess)
	base := fmt.Sprintf("attendance-%s-grade-%d", sess.Selection.Date, sess.Selection.GradeID)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", ExportFormatCSV:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
		}
		return &ExportFile{Filename: base + ".csv", ContentType: "text/csv", Content: content}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
		}
		return &ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func sessionDataset(sess *session.Session) export.Dataset {
	headers := []string{"Admission", "Name", "Status", "Reason", "In", "Out", "Notes"}
	rows := make([]map[string]string, 0, len(sess.Roster))
	for _, e := range sess.Roster {
		d := sess.Details[e.ID]
		rows = append(rows, map[string]string{
			"Admission": e.AdmissionNumber,
			"Name":      e.DisplayName,
			"Status":    string(e.AttendanceStatus),
			"Reason":    d.Reason,
			"In":        d.InTime,
			"Out":       d.OutTime,
			"Notes":     d.Notes,
		})
	}
	sum := sess.Summary()
	return export.Dataset{
		Title:    "Attendance " + sess.Selection.Date,
		Subtitle: models.GradeName(sess.Selection.GradeID),
		Headers:  headers,
		Rows:     rows,
		Summary: []string{
			fmt.Sprintf("Total: %d", sum.Total),
			fmt.Sprintf("Present: %d (%.1f%%)", sum.Present, sum.PresentPercent),
			fmt.Sprintf("Absent: %d (%.1f%%)", sum.Absent, sum.AbsentPercent),
			fmt.Sprintf("Late: %d (%.1f%%)", sum.Late, sum.LatePercent),
		},
	}
}
