package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/middleware"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/normalize"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/repository"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/service"
)

type testError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

type testEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *testError             `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type gradeRoster struct {
	size int
}

func (g gradeRoster) Fetch(_ context.Context, _ *models.Principal, gradeID, _ int) (*models.Roster, error) {
	roster := &models.Roster{GradeID: gradeID, Source: models.SourceLive, Pages: 1}
	for i := 1; i <= g.size; i++ {
		roster.Entries = append(roster.Entries, models.RosterEntry{
			ID:              int64(gradeID*100 + i),
			AdmissionNumber: "ADM-" + string(rune('A'+i)),
			DisplayName:     "Student " + string(rune('A'+i)),
			GradeLevelID:    gradeID,
		})
	}
	roster.TotalCount = len(roster.Entries)
	return roster, nil
}

type countingSubmitter struct {
	mu      sync.Mutex
	batches [][]models.AttendanceBatchRecord
}

func (s *countingSubmitter) CreateAttendance(_ context.Context, _ *models.Principal, records []models.AttendanceBatchRecord) (normalize.Result[models.MutationAck], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, records)
	return normalize.Result[models.MutationAck]{Status: "successful", Source: models.SourceLive, Data: models.MutationAck{Message: "saved"}}, nil
}

func withPrincipal(p *models.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextPrincipalKey, p)
		c.Next()
	}
}

func newSessionRouter(t *testing.T, submitter *countingSubmitter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := repository.NewMemorySessionStore(time.Hour, zap.NewNop())
	svc := service.NewSessionService(store, gradeRoster{size: 3}, submitter, nil, nil, nil, service.SessionServiceConfig{}, zap.NewNop())
	h := NewSessionHandler(svc, nil)

	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	g := r.Group("/attendance/sessions", withPrincipal(&models.Principal{UserID: 7, Role: models.RoleEducator}))
	g.POST("", h.Open)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Close)
	g.PUT("/:id/grade", h.SelectGrade)
	g.PUT("/:id/students/:studentId/status", h.SetStatus)
	g.PUT("/:id/editor", h.ConfirmEditor)
	g.POST("/:id/bulk", h.ApplyBulk)
	g.GET("/:id/validation", h.Validate)
	g.POST("/:id/submit", h.Submit)
	g.GET("/:id/export", h.Export)
	return r
}

func do(r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, testEnvelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var env testEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func openSession(t *testing.T, r http.Handler) string {
	t.Helper()
	rec, env := do(r, http.MethodPost, "/attendance/sessions", map[string]interface{}{"grade_id": 8})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view struct {
		ID     string `json:"id"`
		Roster []struct {
			ID int64 `json:"id"`
		} `json:"roster"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Len(t, view.Roster, 3)
	assert.Equal(t, "live", env.Meta["source"])
	return view.ID
}

func TestSessionHandlerBulkFlowAndSubmit(t *testing.T) {
	submitter := &countingSubmitter{}
	r := newSessionRouter(t, submitter)
	id := openSession(t, r)
	base := "/attendance/sessions/" + id

	rec, env := do(r, http.MethodPost, base+"/bulk", map[string]interface{}{"action": "mark_all_absent"})
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	assert.Equal(t, "CONFIRMATION_REQUIRED", env.Error.Code)

	rec, _ = do(r, http.MethodPost, base+"/bulk", map[string]interface{}{"action": "mark_all_absent", "confirmed": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(r, http.MethodPost, base+"/bulk", map[string]interface{}{"action": "mark_all_absent", "confirmed": true})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "BULK_NOOP", env.Error.Code)

	rec, env = do(r, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	details, ok := env.Error.Details.([]interface{})
	require.True(t, ok)
	assert.Len(t, details, 3)
	assert.Empty(t, submitter.batches)

	rec, _ = do(r, http.MethodPost, base+"/bulk", map[string]interface{}{"action": "reset_all", "confirmed": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(r, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result service.SubmitResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 3, result.Submitted)
	require.Len(t, submitter.batches, 1)
	assert.Len(t, submitter.batches[0], 3)

	rec, _ = do(r, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandlerLateEditorRoundTrip(t *testing.T) {
	submitter := &countingSubmitter{}
	r := newSessionRouter(t, submitter)
	id := openSession(t, r)
	base := "/attendance/sessions/" + id

	rec, env := do(r, http.MethodPut, base+"/students/801/status", map[string]string{"status": "late"})
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Editor *struct {
			StudentID int64 `json:"student_id"`
		} `json:"editor"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.NotNil(t, view.Editor)
	assert.Equal(t, int64(801), view.Editor.StudentID)

	rec, _ = do(r, http.MethodPut, base+"/editor", map[string]string{"in_time": "7:45"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(r, http.MethodGet, base+"/validation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"valid":false`)

	rec, _ = do(r, http.MethodPut, base+"/editor", map[string]string{"in_time": "07:45", "out_time": "13:00"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(r, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, submitter.batches, 1)
	var late models.AttendanceBatchRecord
	for _, rec := range submitter.batches[0] {
		if rec.StudentID == 801 {
			late = rec
		}
	}
	assert.Equal(t, models.AttendanceStatusLate, late.Status)
	assert.Equal(t, "07:45", late.InTime)
	assert.Equal(t, "13:00", late.OutTime)
}

func TestSessionHandlerRejectsBadPayloads(t *testing.T) {
	r := newSessionRouter(t, &countingSubmitter{})
	id := openSession(t, r)
	base := "/attendance/sessions/" + id

	rec, _ := do(r, http.MethodPut, base+"/grade", map[string]int{"grade_id": 14})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(r, http.MethodPut, base+"/students/abc/status", map[string]string{"status": "present"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(r, http.MethodPut, base+"/students/801/status", map[string]string{"status": "excused"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(r, http.MethodPost, base+"/bulk", map[string]interface{}{"action": "mark_some", "confirmed": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandlerExportAndClose(t *testing.T) {
	r := newSessionRouter(t, &countingSubmitter{})
	id := openSession(t, r)
	base := "/attendance/sessions/" + id

	rec, _ := do(r, http.MethodGet, base+"/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, rec.Body.String(), "Student")

	rec, _ = do(r, http.MethodGet, base+"/export?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(r, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSessionHandlerRequiresPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewSessionService(repository.NewMemorySessionStore(time.Hour, nil), gradeRoster{}, &countingSubmitter{}, nil, nil, nil, service.SessionServiceConfig{}, nil)
	h := NewSessionHandler(svc, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance/sessions/x", nil)
	h.Get(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type fallbackGrades struct{}

func (fallbackGrades) GradeLevels(context.Context, *models.Principal) (normalize.Result[[]models.GradeLevel], error) {
	return normalize.Result[[]models.GradeLevel]{
		Status: "successful",
		Data:   normalize.FallbackGrades(normalize.Args{}),
		Source: models.SourceFallback,
		Reason: normalize.ReasonHTMLPage,
	}, nil
}

func TestGradeHandlerTagsFallbackSource(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewGradeHandler(service.NewGradeService(fallbackGrades{}, nil, time.Minute, nil))

	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	r.GET("/grades", withPrincipal(&models.Principal{UserID: 1, Role: models.RoleEducator}), h.List)

	rec, env := do(r, http.MethodGet, "/grades", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fallback", env.Meta["source"])
	assert.Equal(t, "html_page", env.Meta["fallback_reason"])
	var grades []models.GradeLevel
	require.NoError(t, json.Unmarshal(env.Data, &grades))
	assert.Len(t, grades, 13)
}

func TestLikesHandlerToggleAndSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewLikesHandler(service.NewLikesService(), nil)
	r := gin.New()
	g := r.Group("", withPrincipal(&models.Principal{UserID: 3, Role: models.RoleParent}))
	g.GET("/posts/likes", h.List)
	g.POST("/posts/likes", h.Merge)
	g.PUT("/posts/:postId/like", h.Like)

	_, env := do(r, http.MethodPut, "/posts/10/like", nil)
	assert.JSONEq(t, `{"post_id":10,"liked":true}`, string(env.Data))

	_, env = do(r, http.MethodPut, "/posts/10/like", nil)
	assert.JSONEq(t, `{"post_id":10,"liked":false}`, string(env.Data))

	_, env = do(r, http.MethodPut, "/posts/11/like", map[string]bool{"liked": true})
	assert.JSONEq(t, `{"post_id":11,"liked":true}`, string(env.Data))

	_, env = do(r, http.MethodPost, "/posts/likes", map[string]interface{}{"posts": []map[string]interface{}{{"post_id": 12, "is_liked": true}, {"post_id": 11, "is_liked": false}}})
	assert.JSONEq(t, `{"liked_post_ids":[12]}`, string(env.Data))

	rec, _ := do(r, http.MethodPut, "/posts/zero/like", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsHandlerReadyReportsFailingDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{
		"redis":    PingFunc(func(context.Context) error { return nil }),
		"postgres": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	r := gin.New()
	r.GET("/ready", h.Ready)
	r.GET("/health", h.Health)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "connection refused"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
