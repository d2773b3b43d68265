package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/service"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/response"
)

// ContextPrincipalKey is the gin context key storing the caller's Principal.
const ContextPrincipalKey = "principal"

// SelectedStudentHeader lets a parent switch between their children
// without a new token.
const SelectedStudentHeader = "X-Selected-Student"

// JWT protects routes by requiring a valid access token.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		principal, err := authService.Authenticate(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if raw := c.GetHeader(SelectedStudentHeader); raw != "" && principal.Role == models.RoleParent {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid selected student"))
				c.Abort()
				return
			}
			selected := principal.WithSelectedStudent(id)
			principal = &selected
		}

		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the authenticated caller, or nil.
func PrincipalFrom(c *gin.Context) *models.Principal {
	value, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return nil
	}
	principal, _ := value.(*models.Principal)
	return principal
}
