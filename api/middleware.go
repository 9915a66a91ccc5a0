package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/browserwing/locator/config"
	"github.com/browserwing/locator/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceIDMiddleware 为每个请求生成 trace_id
func TraceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 尝试从请求头获取 trace_id，如果没有则生成新的
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}

		ctx := logger.WithTraceID(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Trace-ID", traceID)

		c.Next()
	}
}

// ApiKeyAuthenticationMiddleware 配置了 api_key 时校验 X-BrowserWing-Key
func ApiKeyAuthenticationMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || cfg.Server == nil || cfg.Server.APIKey == "" {
			c.Next()
			return
		}

		apiKey := c.GetHeader("X-BrowserWing-Key")
		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "error.unauthorized"})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(cfg.Server.APIKey)) != 1 {
			logger.Warn(c.Request.Context(), "Invalid API key from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "error.invalidApiKey"})
			c.Abort()
			return
		}
		c.Next()
	}
}
