package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
)

func TestErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Error(c, appErrors.WithDetails(appErrors.ErrValidation, "attendance detail is incomplete", []string{"in_time is required for late students"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var env struct {
		Error struct {
			Code    string   `json:"code"`
			Details []string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, []string{"in_time is required for late students"}, env.Error.Details)
	assert.Len(t, c.Errors, 1)
}

func TestUpstreamUnavailableSetsRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Error(c, appErrors.Wrap(errors.New("dial tcp: refused"), appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "school backend unavailable"))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
}

func TestAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Attachment(c, "attendance-2026-10-18-grade-8.csv", "text/csv", []byte("a,b\n"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="attendance-2026-10-18-grade-8.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", rec.Body.String())
}
