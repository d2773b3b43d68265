package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/middleware"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/response"
)

func principal(c *gin.Context) (*models.Principal, bool) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return p, true
}

// bind decodes the JSON body into dest and validates it.
func bind(c *gin.Context, v *validator.Validate, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return false
	}
	if err := v.Struct(dest); err != nil {
		response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, "validation failed", fieldErrors(err)))
		return false
	}
	return true
}

func fieldErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return out
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid "+name))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil {
		return v
	}
	return fallback
}
