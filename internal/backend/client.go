// Package backend talks to the SchoolSnap REST backend. Every answer goes
// through the normalize package before it reaches a service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/normalize"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/config"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/middleware/requestid"
)

const (
	PathStudentList      = "/api/student-management/student/get-student-list-data"
	PathGradeLevelCounts = "/api/student-management/student/get-grade-level-student-count"
	PathAttendanceList   = "/api/attendance-management/attendance/list"
	PathAttendanceCreate = "/api/attendance-management/attendance/bulk-create"
	PathFeedbackList     = "/api/educator-feedback-management/feedback/list"
	PathFeedbackCreate   = "/api/educator-feedback-management/feedback/create"

	maxBodyBytes = 10 << 20
)

// RequestObserver records backend call latency.
type RequestObserver interface {
	ObserveBackendRequest(endpoint string, statusCode int, duration time.Duration)
}

// Client calls the SchoolSnap backend.
type Client struct {
	baseURL      string
	assetBaseURL string
	http         *http.Client
	policy       normalize.Policy
	observer     RequestObserver
	logger       *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithObserver attaches latency and normalisation observers.
func WithObserver(observer RequestObserver, onNormalize normalize.Observer) Option {
	return func(c *Client) {
		c.observer = observer
		c.policy.Observe = onNormalize
	}
}

// New creates a client for cfg.
func New(cfg config.BackendConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		assetBaseURL: cfg.AssetBaseURL,
		http:         &http.Client{Timeout: timeout},
		policy:       normalize.Policy{DegradedMode: cfg.DegradedMode, Logger: logger},
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StudentList fetches one page of the student list.
func (c *Client) StudentList(ctx context.Context, p *models.Principal, req models.StudentListRequest) (normalize.Result[models.StudentPage], error) {
	args := normalize.Args{GradeID: req.GradeLevelID, Page: req.Page, PageSize: req.PageSize, AssetBaseURL: c.assetBaseURL}
	return query(ctx, c, p, PathStudentList, req, args, normalize.Students)
}

// GradeLevels fetches the grade list with per-grade student counts.
func (c *Client) GradeLevels(ctx context.Context, p *models.Principal) (normalize.Result[[]models.GradeLevel], error) {
	return query(ctx, c, p, PathGradeLevelCounts, struct{}{}, normalize.Args{}, normalize.Grades)
}

type attendanceListBody struct {
	Page         int    `json:"page"`
	PageSize     int    `json:"page_size"`
	Date         string `json:"date,omitempty"`
	GradeLevelID int    `json:"grade_level_id,omitempty"`
	SearchPhrase string `json:"search_phrase"`
}

// AttendanceList fetches stored attendance rows.
func (c *Client) AttendanceList(ctx context.Context, p *models.Principal, f models.AttendanceFilter) (normalize.Result[models.AttendanceRecordPage], error) {
	body := attendanceListBody{
		Page:         f.Page,
		PageSize:     f.PageSize,
		Date:         f.Date,
		GradeLevelID: f.GradeLevelID,
		SearchPhrase: f.SearchPhrase,
	}
	args := normalize.Args{GradeID: f.GradeLevelID, Page: f.Page, PageSize: f.PageSize}
	return query(ctx, c, p, PathAttendanceList, body, args, normalize.AttendanceRecords)
}

// CreateAttendance submits one batch of attendance records.
func (c *Client) CreateAttendance(ctx context.Context, p *models.Principal, records []models.AttendanceBatchRecord) (normalize.Result[models.MutationAck], error) {
	body := struct {
		Attendance []models.AttendanceBatchRecord `json:"attendance"`
	}{Attendance: records}
	return query(ctx, c, p, PathAttendanceCreate, body, normalize.Args{}, normalize.AttendanceCreate)
}

// FeedbackList fetches educator feedback.
func (c *Client) FeedbackList(ctx context.Context, p *models.Principal, f models.FeedbackFilter) (normalize.Result[models.FeedbackPage], error) {
	args := normalize.Args{Page: f.Page, PageSize: f.PageSize}
	return query(ctx, c, p, PathFeedbackList, f, args, normalize.FeedbackList)
}

// CreateFeedback records a new feedback entry.
func (c *Client) CreateFeedback(ctx context.Context, p *models.Principal, in models.FeedbackInput) (normalize.Result[models.MutationAck], error) {
	return query(ctx, c, p, PathFeedbackCreate, in, normalize.Args{}, normalize.FeedbackCreate)
}

func query[T any](ctx context.Context, c *Client, p *models.Principal, path string, body interface{}, args normalize.Args, t normalize.Transformer[T]) (normalize.Result[T], error) {
	resp, err := c.post(ctx, p, path, body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return normalize.Result[T]{}, appErrors.Wrap(ctxErr, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "request cancelled")
		}
		c.logger.Warn("backend request failed", zap.String("path", path), zap.Error(err))
		return normalize.Unreachable(c.policy, args, t, err)
	}
	return normalize.Apply(c.policy, resp, args, t)
}

func (c *Client) post(ctx context.Context, p *models.Principal, path string, body interface{}) (normalize.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return normalize.Response{}, fmt.Errorf("marshal %s body: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return normalize.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p != nil && p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(path, 0, time.Since(start))
		return normalize.Response{}, fmt.Errorf("backend request %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.observe(path, resp.StatusCode, time.Since(start))
	if err != nil {
		return normalize.Response{}, fmt.Errorf("read %s body: %w", path, err)
	}

	c.logger.Debug("backend response",
		zap.String("path", path),
		zap.Int("status_code", resp.StatusCode),
		zap.Int("bytes", len(raw)))

	return normalize.Response{Body: raw, StatusCode: resp.StatusCode}, nil
}

func (c *Client) observe(path string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveBackendRequest(path, status, d)
	}
}
