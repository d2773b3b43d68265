package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/service"
)

func newAuthRouter(auth *service.AuthService, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWT(auth), RequireRoles(roles...), func(c *gin.Context) {
		p := PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": p.UserID, "selected": p.SelectedStudentID})
	})
	return r
}

func TestJWTAndRoles(t *testing.T) {
	auth := service.NewAuthService(service.AuthConfig{Secret: "s"}, nil)
	r := newAuthRouter(auth, Staff...)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	educatorToken, _, err := auth.IssueToken(5, models.RoleEducator, "", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+educatorToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	parentToken, _, err := auth.IssueToken(6, models.RoleParent, "", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+parentToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestParentSelectedStudentHeader(t *testing.T) {
	auth := service.NewAuthService(service.AuthConfig{Secret: "s"}, nil)
	r := newAuthRouter(auth, models.RoleParent)
	token, _, err := auth.IssueToken(6, models.RoleParent, "", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(SelectedStudentHeader, "44")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":6,"selected":44}`, w.Body.String())

	req.Header.Set(SelectedStudentHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
