package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
)

const (
	responseMetaKey = "response_meta"
	sourceKey       = "source"
	fallbackKey     = "fallback_reason"
)

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		meta := ensureMeta(c)
		c.Next()
		if _, exists := meta["processing_time_ms"]; !exists {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
}

// SetDataSource records whether the payload came from the backend or was
// substituted, and why.
func SetDataSource(c *gin.Context, source models.DataSource, reason string) {
	meta := ensureMeta(c)
	if source != "" {
		meta[sourceKey] = source
	}
	if reason != "" {
		meta[fallbackKey] = reason
	}
}

// ExtractMeta returns the metadata map stored on the context.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	newMeta := make(map[string]interface{})
	c.Set(responseMetaKey, newMeta)
	return newMeta
}

// LogFields adds the caller and the data source to access log lines.
func LogFields(c *gin.Context) []zap.Field {
	var fields []zap.Field
	if p := PrincipalFrom(c); p != nil {
		fields = append(fields, zap.Int64("user_id", p.UserID), zap.String("role", string(p.Role)))
	}
	meta := ExtractMeta(c)
	if source, ok := meta[sourceKey]; ok {
		fields = append(fields, zap.String("data_source", fmt.Sprint(source)))
	}
	if reason, ok := meta[fallbackKey]; ok {
		fields = append(fields, zap.String("fallback_reason", fmt.Sprint(reason)))
	}
	return fields
}
