package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/game-catalog/internal/logger"
	"go.uber.org/zap"
)

// AccessLog 每个请求输出一行结构化访问日志
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		logger.LogRequest(log,
			c.Request.Method,
			path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
			GetRequestID(c),
		)
	}
}
