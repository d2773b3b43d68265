package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/middleware"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/normalize"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/response"
)

// respondResult writes a normalised backend result and tags the response
// with where its data came from.
func respondResult[T any](c *gin.Context, status int, result normalize.Result[T], err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetDataSource(c, result.Source, string(result.Reason))
	if status == 0 {
		status = http.StatusOK
	}
	response.JSON(c, status, result.Data, nil, middleware.ExtractMeta(c))
}
