package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/service"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/logger"
)

func TestAccessLogCarriesCallerAndSource(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(logger.GinMiddleware(zap.New(core), LogFields), WithResponseMeta())
	r.GET("/grades", func(c *gin.Context) {
		c.Set(ContextPrincipalKey, &models.Principal{UserID: 9, Role: models.RoleEducator})
		SetDataSource(c, models.SourceFallback, "html_page")
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/grades", nil))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(9), fields["user_id"])
	assert.Equal(t, "educator", fields["role"])
	assert.Equal(t, "fallback", fields["data_source"])
	assert.Equal(t, "html_page", fields["fallback_reason"])
	assert.Equal(t, "/grades", fields["route"])
}

func TestMetricsSkipsHealthEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/grades", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/health", "/grades", "/grades", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, uint64(3), metrics.Snapshot().RequestsTotal)
}
