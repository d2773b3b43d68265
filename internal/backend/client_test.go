package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/normalize"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/config"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/middleware/requestid"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveBackendRequest(endpoint string, statusCode int, duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, endpoint)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, degraded bool) (*Client, *recordingObserver) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	obs := &recordingObserver{}
	client := New(config.BackendConfig{BaseURL: srv.URL, Timeout: 2 * time.Second, DegradedMode: degraded}, nil, WithObserver(obs, nil))
	return client, obs
}

func TestStudentListForwardsTokenAndBody(t *testing.T) {
	var gotAuth, gotReqID string
	var gotBody models.StudentListRequest
	client, obs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathStudentList, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get(requestid.Header)
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"successful","data":{"students":[{"id":1,"full_name":"Amara","grade_level_id":8}],"total_count":1,"current_page":1}}`))
	}, true)

	ctx := requestid.WithValue(context.Background(), "req-1")
	res, err := client.StudentList(ctx, &models.Principal{UserID: 3, Token: "tok"}, models.StudentListRequest{Page: 1, PageSize: 10000, GradeLevelID: 8})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "req-1", gotReqID)
	assert.Equal(t, models.StudentListRequest{Page: 1, PageSize: 10000, GradeLevelID: 8}, gotBody)
	assert.Equal(t, models.SourceLive, res.Source)
	require.Len(t, res.Data.Students, 1)
	assert.Equal(t, "Amara", res.Data.Students[0].DisplayName)
	assert.Equal(t, []string{PathStudentList}, obs.calls)
}

func TestStudentListHTMLFallsBack(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body>Cannot POST</body></html>"))
	}, true)

	res, err := client.StudentList(context.Background(), nil, models.StudentListRequest{Page: 1, PageSize: 50, GradeLevelID: 4})
	require.NoError(t, err)
	assert.Equal(t, models.SourceFallback, res.Source)
	assert.Equal(t, normalize.ReasonHTMLPage, res.Reason)
	assert.Len(t, res.Data.Students, normalize.FallbackStudentCount(4))
}

func TestCreateAttendanceRejected(t *testing.T) {
	var received struct {
		Attendance []models.AttendanceBatchRecord `json:"attendance"`
	}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &received)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"failed","message":"Attendance already exists"}`))
	}, true)

	records := []models.AttendanceBatchRecord{{Date: "2026-10-18", GradeLevelID: 8, StudentID: 1, Status: models.AttendanceStatusLate, InTime: "07:30", OutTime: "13:00"}}
	_, err := client.CreateAttendance(context.Background(), nil, records)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpstreamRejected))
	assert.Equal(t, "Attendance already exists", appErrors.FromError(err).Message)
	assert.Equal(t, records, received.Attendance)
}

func TestUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	degraded := New(config.BackendConfig{BaseURL: url, Timeout: time.Second, DegradedMode: true}, nil)
	res, err := degraded.GradeLevels(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, normalize.ReasonUnreachable, res.Reason)

	strict := New(config.BackendConfig{BaseURL: url, Timeout: time.Second}, nil)
	_, err = strict.GradeLevels(context.Background(), nil)
	assert.True(t, errors.Is(err, appErrors.ErrUpstreamUnavailable))

	_, err = degraded.CreateAttendance(context.Background(), nil, nil)
	assert.True(t, errors.Is(err, appErrors.ErrUpstreamUnavailable))
}
